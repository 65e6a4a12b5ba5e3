package scheduler

import (
	"context"
	"sync"

	"github.com/framefeed/framefeed/internal/models"
)

// Queue is the shared work queue the download workers pull from. Work is
// keyed by resource id with a keep-existing policy: enqueuing a resource
// that is already tracked is a no-op, so at most one job ever exists per
// resource identifier.
type Queue struct {
	mu   sync.Mutex
	seen map[string]struct{}
	ch   chan models.NetworkResource
}

// NewQueue creates a queue with room for capacity unique resources.
func NewQueue(capacity int) *Queue {
	return &Queue{
		seen: make(map[string]struct{}, capacity),
		ch:   make(chan models.NetworkResource, capacity),
	}
}

// Enqueue adds a resource unless one with the same id was already added.
// Returns whether the resource was accepted.
func (q *Queue) Enqueue(res models.NetworkResource) bool {
	id := res.ID()

	q.mu.Lock()
	if _, dup := q.seen[id]; dup {
		q.mu.Unlock()
		return false
	}
	q.seen[id] = struct{}{}
	q.mu.Unlock()

	q.ch <- res
	return true
}

// Close marks the intake finished. Workers drain what remains and stop.
func (q *Queue) Close() {
	close(q.ch)
}

// Next returns the next resource, blocking until one is available, the
// queue closes, or ctx is cancelled.
func (q *Queue) Next(ctx context.Context) (models.NetworkResource, bool) {
	select {
	case <-ctx.Done():
		return models.NetworkResource{}, false
	case res, ok := <-q.ch:
		return res, ok
	}
}

// Len returns the number of resources currently waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}
