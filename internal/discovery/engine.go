// Package discovery browses the local network for file-sharing servers
// advertising a known DNS-SD service type and resolves matches into
// connectable server records. The session is an observable state machine:
// Idle -> Searching -> Idle | Error.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/framefeed/framefeed/internal/config"
	"github.com/framefeed/framefeed/internal/events"
	"github.com/framefeed/framefeed/internal/logging"
	"github.com/framefeed/framefeed/internal/models"
)

// State is the discovery session state.
type State string

const (
	StateIdle      State = "idle"
	StateSearching State = "searching"
	StateError     State = "error"
)

// ServiceEntry is one advertisement event from the resolver. A zero TTL is
// a goodbye packet: the service left the network.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     int
	Addrs    []net.IP
	TTL      uint32
}

// Resolver browses for a service type and streams entries until ctx ends,
// then closes the channel. A non-nil return means browsing never started.
type Resolver interface {
	Browse(ctx context.Context, serviceType, domain string, entries chan<- ServiceEntry) error
}

// Engine runs discovery sessions and publishes found/lost servers on the
// event bus. Matches are deduplicated by service instance name, so the
// unordered found/resolved/lost event stream cannot double-register a
// server.
type Engine struct {
	cfg      config.DiscoveryConfig
	resolver Resolver
	bus      *events.Bus
	log      *logging.Logger

	mu      sync.Mutex
	state   State
	lastErr string
	servers map[string]models.NetworkServer // instance name -> server
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewEngine creates a discovery engine with the given resolver backend.
func NewEngine(cfg config.DiscoveryConfig, resolver Resolver, bus *events.Bus, log *logging.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		resolver: resolver,
		bus:      bus,
		log:      log,
		state:    StateIdle,
		servers:  make(map[string]models.NetworkServer),
	}
}

// Start begins a discovery session. A failure to start browsing is terminal
// for the session and moves the engine to the Error state; it does not
// panic or retry.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateSearching {
		e.mu.Unlock()
		return fmt.Errorf("discovery already running")
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	entries := make(chan ServiceEntry)

	if err := e.resolver.Browse(sessionCtx, e.cfg.ServiceType, e.cfg.Domain, entries); err != nil {
		cancel()
		e.state = StateError
		e.lastErr = err.Error()
		e.mu.Unlock()

		e.log.Error().Err(err).Str("service", e.cfg.ServiceType).Msg("Failed to start discovery")
		e.bus.Publish(&events.DiscoveryEvent{
			BaseEvent: events.BaseEvent{EventType: events.EventDiscoveryFailed},
			Reason:    err.Error(),
		})
		return fmt.Errorf("failed to start discovery: %w", err)
	}

	e.state = StateSearching
	e.lastErr = ""
	e.servers = make(map[string]models.NetworkServer)
	e.cancel = cancel
	e.done = make(chan struct{})
	done := e.done
	e.mu.Unlock()

	e.log.Info().Str("service", e.cfg.ServiceType).Str("domain", e.cfg.Domain).Msg("Discovery started")
	e.bus.Publish(&events.DiscoveryEvent{BaseEvent: events.BaseEvent{EventType: events.EventDiscoveryStarted}})

	go func() {
		defer close(done)
		for entry := range entries {
			e.handleEntry(entry)
		}

		e.mu.Lock()
		if e.state == StateSearching {
			e.state = StateIdle
		}
		e.mu.Unlock()
		e.bus.Publish(&events.DiscoveryEvent{BaseEvent: events.BaseEvent{EventType: events.EventDiscoveryStopped}})
	}()

	return nil
}

func (e *Engine) handleEntry(entry ServiceEntry) {
	if entry.TTL == 0 {
		e.mu.Lock()
		server, known := e.servers[entry.Instance]
		if known {
			delete(e.servers, entry.Instance)
		}
		e.mu.Unlock()

		if known {
			e.log.Debug().Str("instance", entry.Instance).Msg("Service lost")
			e.bus.PublishServerLost(server.ID)
		}
		return
	}

	address := resolveAddress(entry)
	if address == "" {
		// Resolve failures are non-fatal: log and skip, the session
		// keeps searching.
		e.log.Warn().Str("instance", entry.Instance).Msg("Failed to resolve discovered service, skipping")
		return
	}

	e.mu.Lock()
	if _, seen := e.servers[entry.Instance]; seen {
		e.mu.Unlock()
		return
	}
	server := models.NewDiscoveredServer(entry.Instance, address)
	e.servers[entry.Instance] = server
	e.mu.Unlock()

	e.log.Info().Str("name", server.Name).Str("address", server.Address).Msg("Server discovered")
	e.bus.PublishServerFound(server)
}

// resolveAddress picks a connectable address for an advertisement, favoring
// a resolved IP over the advertised host name.
func resolveAddress(entry ServiceEntry) string {
	for _, ip := range entry.Addrs {
		if v4 := ip.To4(); v4 != nil {
			return v4.String()
		}
	}
	if len(entry.Addrs) > 0 {
		return entry.Addrs[0].String()
	}
	if entry.Host != "" {
		return entry.Host
	}
	return ""
}

// Stop ends the session and waits for the event loop to drain.
// Safe to call repeatedly.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	done := e.done
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// State returns the session state and, in the Error state, its reason.
func (e *Engine) State() (State, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.lastErr
}

// Servers returns an unordered snapshot of the currently discovered set.
func (e *Engine) Servers() []models.NetworkServer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.NetworkServer, 0, len(e.servers))
	for _, s := range e.servers {
		out = append(out, s)
	}
	return out
}
