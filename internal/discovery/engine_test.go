package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/framefeed/framefeed/internal/config"
	"github.com/framefeed/framefeed/internal/events"
	"github.com/framefeed/framefeed/internal/logging"
)

// fakeResolver scripts the advertisement stream for tests.
type fakeResolver struct {
	entries  []ServiceEntry
	startErr error
	hold     bool // keep the channel open until ctx ends
}

func (f *fakeResolver) Browse(ctx context.Context, serviceType, domain string, out chan<- ServiceEntry) error {
	if f.startErr != nil {
		return f.startErr
	}
	go func() {
		defer close(out)
		for _, e := range f.entries {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
		if f.hold {
			<-ctx.Done()
		}
	}()
	return nil
}

func testEngine(t *testing.T, resolver Resolver) (*Engine, *events.Bus) {
	t.Helper()
	bus := events.NewBus(100)
	t.Cleanup(bus.Close)
	cfg := config.DiscoveryConfig{ServiceType: "_smb._tcp", Domain: "local.", Timeout: time.Second}
	return NewEngine(cfg, resolver, bus, logging.NewDefaultCLILogger()), bus
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestEngine_ResolvesServer(t *testing.T) {
	resolver := &fakeResolver{
		entries: []ServiceEntry{{
			Instance: "OFFICE-NAS",
			Host:     "office-nas.local.",
			Port:     445,
			Addrs:    []net.IP{net.ParseIP("192.168.1.20")},
			TTL:      120,
		}},
		hold: true,
	}
	engine, bus := testEngine(t, resolver)
	found := bus.Subscribe(events.EventServerFound)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer engine.Stop()

	select {
	case ev := <-found:
		de := ev.(*events.DiscoveryEvent)
		if de.Server.Name != "OFFICE-NAS" {
			t.Errorf("Expected name OFFICE-NAS, got %s", de.Server.Name)
		}
		if de.Server.Address != "192.168.1.20" {
			t.Errorf("Expected resolved address, got %s", de.Server.Address)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for found event")
	}

	if st, _ := engine.State(); st != StateSearching {
		t.Errorf("Expected searching state, got %s", st)
	}
	servers := engine.Servers()
	if len(servers) != 1 {
		t.Fatalf("Expected 1 server, got %d", len(servers))
	}
}

func TestEngine_DedupesByInstanceName(t *testing.T) {
	entry := ServiceEntry{Instance: "NAS", Addrs: []net.IP{net.ParseIP("10.0.0.5")}, TTL: 60}
	resolver := &fakeResolver{entries: []ServiceEntry{entry, entry, entry}}
	engine, _ := testEngine(t, resolver)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	engine.Stop()

	if got := len(engine.Servers()); got != 1 {
		t.Errorf("Expected 1 deduplicated server, got %d", got)
	}
}

func TestEngine_ServiceLost(t *testing.T) {
	resolver := &fakeResolver{
		entries: []ServiceEntry{
			{Instance: "NAS", Addrs: []net.IP{net.ParseIP("10.0.0.5")}, TTL: 60},
			{Instance: "NAS", TTL: 0}, // goodbye
		},
	}
	engine, bus := testEngine(t, resolver)
	lost := bus.Subscribe(events.EventServerLost)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	engine.Stop()

	select {
	case ev := <-lost:
		if ev.(*events.DiscoveryEvent).ServerID == "" {
			t.Error("Lost event must carry the server id")
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for lost event")
	}
	if got := len(engine.Servers()); got != 0 {
		t.Errorf("Expected empty set after goodbye, got %d", got)
	}
}

func TestEngine_SkipsUnresolvable(t *testing.T) {
	resolver := &fakeResolver{
		entries: []ServiceEntry{
			{Instance: "GHOST", TTL: 60}, // no address, no host
			{Instance: "REAL", Addrs: []net.IP{net.ParseIP("10.0.0.7")}, TTL: 60},
		},
	}
	engine, _ := testEngine(t, resolver)

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	engine.Stop()

	servers := engine.Servers()
	if len(servers) != 1 || servers[0].Name != "REAL" {
		t.Errorf("Expected only the resolvable server, got %+v", servers)
	}
	// Resolve failures never fail the session.
	if st, _ := engine.State(); st == StateError {
		t.Error("Resolve failure must not move the session to error")
	}
}

func TestEngine_StartFailureIsTerminal(t *testing.T) {
	resolver := &fakeResolver{startErr: errors.New("no multicast interface")}
	engine, bus := testEngine(t, resolver)
	failed := bus.Subscribe(events.EventDiscoveryFailed)

	if err := engine.Start(context.Background()); err == nil {
		t.Fatal("Expected Start to fail")
	}

	st, reason := engine.State()
	if st != StateError {
		t.Errorf("Expected error state, got %s", st)
	}
	if reason == "" {
		t.Error("Error state must carry a message")
	}

	select {
	case ev := <-failed:
		if ev.(*events.DiscoveryEvent).Reason == "" {
			t.Error("Failed event must carry a reason")
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for failed event")
	}
}

func TestEngine_StopReturnsToIdle(t *testing.T) {
	resolver := &fakeResolver{hold: true}
	engine, _ := testEngine(t, resolver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	engine.Stop()

	waitFor(t, func() bool {
		st, _ := engine.State()
		return st == StateIdle
	}, "Engine did not return to idle after Stop")

	// Second Stop is harmless.
	engine.Stop()
}

func TestEngine_RejectsConcurrentSessions(t *testing.T) {
	resolver := &fakeResolver{hold: true}
	engine, _ := testEngine(t, resolver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer engine.Stop()

	if err := engine.Start(ctx); err == nil {
		t.Error("Expected error starting a second concurrent session")
	}
}
