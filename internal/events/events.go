// Package events provides the typed event bus that decouples the discovery
// engine and download pipeline from their observers. Discovery and transfer
// listeners are a single stream of explicit event values, not callbacks.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/framefeed/framefeed/internal/models"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	// Discovery session events
	EventDiscoveryStarted EventType = "discovery_started"
	EventServerFound      EventType = "server_found"
	EventServerLost       EventType = "server_lost"
	EventDiscoveryStopped EventType = "discovery_stopped"
	EventDiscoveryFailed  EventType = "discovery_failed"

	// Download pipeline events
	EventDownloadQueued    EventType = "download_queued"
	EventDownloadStarted   EventType = "download_started"
	EventDownloadRetrying  EventType = "download_retrying"
	EventDownloadCompleted EventType = "download_completed"
	EventDownloadFailed    EventType = "download_failed"
	EventBatchProgress     EventType = "batch_progress"
	EventBatchCompleted    EventType = "batch_completed"

	// Album events
	EventAlbumUpdated EventType = "album_updated"
)

const (
	defaultBuffer = 1000
	maxBuffer     = 10000
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

func base(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// NewBaseEvent stamps an event envelope with the current time.
func NewBaseEvent(t EventType) BaseEvent {
	return base(t)
}

// DiscoveryEvent represents a discovery session transition or a server
// appearing/disappearing on the network.
type DiscoveryEvent struct {
	BaseEvent
	Server   models.NetworkServer // Found events only
	ServerID string               // Lost events only
	Reason   string               // Failed events only
}

// DownloadEvent represents a single resource's lifecycle inside a batch.
type DownloadEvent struct {
	BaseEvent
	ResourceID string
	Name       string
	Size       int64
	AlbumID    string
	Attempt    int   // Retrying events only
	Error      error // Failed and Retrying events only
}

// ProgressEvent carries the aggregate batch counters. Republished after
// every terminal resource transition.
type ProgressEvent struct {
	BaseEvent
	AlbumID  string
	Progress models.DownloadProgress
}

// AlbumEvent signals that an album's photo list changed.
type AlbumEvent struct {
	BaseEvent
	AlbumID    string
	PhotoCount int
}

// Bus manages event subscriptions and publishing. Publishing never blocks:
// a subscriber whose buffer is full loses the event, tracked by a counter.
type Bus struct {
	subscribers map[EventType][]chan Event
	all         []chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
	dropped     atomic.Int64
}

// NewBus creates a new event bus with the specified per-subscriber buffer.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBuffer
	}
	if bufferSize > maxBuffer {
		bufferSize = maxBuffer
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type.
func (b *Bus) Subscribe(eventType EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to every event type.
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// Publish sends an event to all matching subscribers without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
	for _, ch := range b.all {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events lost to full subscriber buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
}

// PublishServerFound is a convenience method for discovery matches.
func (b *Bus) PublishServerFound(server models.NetworkServer) {
	b.Publish(&DiscoveryEvent{BaseEvent: base(EventServerFound), Server: server})
}

// PublishServerLost is a convenience method for service-lost notifications.
func (b *Bus) PublishServerLost(serverID string) {
	b.Publish(&DiscoveryEvent{BaseEvent: base(EventServerLost), ServerID: serverID})
}

// PublishProgress is a convenience method for batch counter updates.
func (b *Bus) PublishProgress(albumID string, progress models.DownloadProgress) {
	b.Publish(&ProgressEvent{BaseEvent: base(EventBatchProgress), AlbumID: albumID, Progress: progress})
}
