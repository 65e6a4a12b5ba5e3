package events

import (
	"testing"
	"time"

	"github.com/framefeed/framefeed/internal/models"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	ch := bus.Subscribe(EventServerFound)

	server := models.NewDiscoveredServer("OFFICE-NAS", "192.168.1.20")
	bus.PublishServerFound(server)

	select {
	case received := <-ch:
		found, ok := received.(*DiscoveryEvent)
		if !ok {
			t.Fatal("Expected DiscoveryEvent")
		}
		if found.Server.Name != "OFFICE-NAS" {
			t.Errorf("Expected server name 'OFFICE-NAS', got '%s'", found.Server.Name)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	ch1 := bus.Subscribe(EventBatchProgress)
	ch2 := bus.Subscribe(EventBatchProgress)

	bus.PublishProgress("album-1", models.DownloadProgress{Total: 5, Completed: 2, IsActive: true})

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			progress, ok := received.(*ProgressEvent)
			if !ok {
				t.Fatalf("Subscriber %d: expected ProgressEvent", i)
			}
			if progress.Progress.Completed != 2 {
				t.Errorf("Subscriber %d: expected completed 2, got %d", i, progress.Progress.Completed)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("Subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestBus_TypeFiltering(t *testing.T) {
	bus := NewBus(10)
	defer bus.Close()

	lostCh := bus.Subscribe(EventServerLost)

	bus.PublishServerFound(models.NewDiscoveredServer("NAS", "10.0.0.5"))
	bus.PublishServerLost("server-123")

	select {
	case received := <-lostCh:
		if received.Type() != EventServerLost {
			t.Errorf("Expected server_lost, got %s", received.Type())
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for lost event")
	}

	select {
	case unexpected := <-lostCh:
		t.Errorf("Unexpected second event: %s", unexpected.Type())
	default:
	}
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	bus.Subscribe(EventServerLost) // never drained

	bus.PublishServerLost("a")
	bus.PublishServerLost("b") // buffer full, dropped

	if bus.Dropped() != 1 {
		t.Errorf("Expected 1 dropped event, got %d", bus.Dropped())
	}
}

func TestBus_SubscribeAfterClose(t *testing.T) {
	bus := NewBus(10)
	bus.Close()

	ch := bus.Subscribe(EventServerFound)
	if _, open := <-ch; open {
		t.Error("Subscription after close should yield a closed channel")
	}

	// Publishing after close must not panic.
	bus.PublishServerLost("x")
}
