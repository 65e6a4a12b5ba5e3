// Package state persists the download pipeline's progress so a batch
// survives process death. The full state map, the aggregate counters, and
// the active album id are rewritten after every transition.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/framefeed/framefeed/internal/models"
)

const stateFile = "downloads.json"

// Snapshot is the on-disk shape: a JSON array of per-resource entries plus
// the scalar counters and the active album id.
type Snapshot struct {
	Entries       []models.DownloadState `json:"entries"`
	Total         int                    `json:"total"`
	Completed     int                    `json:"completed"`
	Failed        int                    `json:"failed"`
	ActiveAlbumID string                 `json:"activeAlbumId"`
}

// Store owns the in-memory state and its durable mirror. All mutation goes
// through the store so counters cannot double-count under concurrent
// workers, and every transition is persisted before it is observable.
type Store struct {
	mu    sync.Mutex
	path  string
	snap  Snapshot
	index map[string]int // resource id -> position in snap.Entries
}

// Open loads persisted state from dataDir, or starts empty.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		path:  filepath.Join(dataDir, stateFile),
		index: make(map[string]int),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read download state: %w", err)
	}
	if err := json.Unmarshal(data, &s.snap); err != nil {
		return nil, fmt.Errorf("failed to parse download state: %w", err)
	}
	s.reindex()
	return s, nil
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.snap.Entries))
	for i, e := range s.snap.Entries {
		s.index[e.Resource.ID()] = i
	}
}

// BeginBatch replaces any previous batch with a fresh pending entry per
// resource and persists the new snapshot. Total is fixed here and does not
// change for the life of the batch.
func (s *Store) BeginBatch(albumID string, resources []models.NetworkResource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap = Snapshot{
		Entries:       make([]models.DownloadState, 0, len(resources)),
		Total:         len(resources),
		ActiveAlbumID: albumID,
	}
	for _, r := range resources {
		s.snap.Entries = append(s.snap.Entries, models.DownloadState{
			AlbumID:  albumID,
			Resource: r,
			Status:   models.StatusPending,
		})
	}
	s.reindex()
	return s.persistLocked()
}

// Transition moves one resource to the given status, updating counters for
// terminal transitions, and persists. Illegal transitions are rejected so
// a completed resource can never be double-counted.
func (s *Store) Transition(resourceID string, status models.DownloadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[resourceID]
	if !ok {
		return fmt.Errorf("resource %s not tracked in current batch", resourceID)
	}
	entry := &s.snap.Entries[i]
	if !entry.Status.CanTransitionTo(status) {
		return fmt.Errorf("illegal transition %s -> %s for %s", entry.Status, status, resourceID)
	}

	entry.Status = status
	switch status {
	case models.StatusCompleted:
		entry.Progress = 1.0
		s.snap.Completed++
	case models.StatusFailed:
		s.snap.Failed++
	}
	return s.persistLocked()
}

// Requeue resets every pending or downloading entry back to pending and
// returns them. Covers both resources never started and entries orphaned by
// a crash mid-download. Returns nil when nothing is resumable.
func (s *Store) Requeue() ([]models.DownloadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var remaining []models.DownloadState
	for i := range s.snap.Entries {
		e := &s.snap.Entries[i]
		if e.Status == models.StatusPending || e.Status == models.StatusDownloading {
			e.Status = models.StatusPending
			e.Progress = 0
			remaining = append(remaining, *e)
		}
	}
	if len(remaining) == 0 {
		return nil, nil
	}
	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return remaining, nil
}

// FinishBatch clears the active album id once every resource is terminal,
// so a later resume attempt is a no-op. Entries stay for inspection.
func (s *Store) FinishBatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.ActiveAlbumID = ""
	return s.persistLocked()
}

// Clear wipes all entries and counters and persists the empty snapshot.
// Used by whole-batch cancellation. Idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{}
	s.index = make(map[string]int)
	return s.persistLocked()
}

// Progress returns the current aggregate counters as a value snapshot.
func (s *Store) Progress() models.DownloadProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.DownloadProgress{
		Total:     s.snap.Total,
		Completed: s.snap.Completed,
		Failed:    s.snap.Failed,
		IsActive:  s.snap.Completed+s.snap.Failed < s.snap.Total,
	}
}

// ActiveAlbumID returns the album the persisted batch belongs to, or "".
func (s *Store) ActiveAlbumID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.ActiveAlbumID
}

// Resumable reports whether any entry is still pending or in flight.
func (s *Store) Resumable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.snap.Entries {
		if e.Status == models.StatusPending || e.Status == models.StatusDownloading {
			return true
		}
	}
	return false
}

// Entries returns a copy of all tracked entries.
func (s *Store) Entries() []models.DownloadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DownloadState, len(s.snap.Entries))
	copy(out, s.snap.Entries)
	return out
}

// persistLocked writes the snapshot via temp-file rename. Caller holds mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(&s.snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal download state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	return nil
}
