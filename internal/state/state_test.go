package state

import (
	"testing"

	"github.com/framefeed/framefeed/internal/models"
)

func testResources(n int) []models.NetworkResource {
	server := models.NetworkServer{ID: "srv-1", Name: "NAS", Address: "10.0.0.1"}
	out := make([]models.NetworkResource, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.NetworkResource{
			Server:  server,
			Path:    "photos/img" + string(rune('a'+i)) + ".jpg",
			Name:    "img" + string(rune('a'+i)) + ".jpg",
			IsImage: true,
			Size:    100,
		})
	}
	return out
}

func TestStore_BatchLifecycle(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	resources := testResources(3)
	if err := s.BeginBatch("album-1", resources); err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}

	p := s.Progress()
	if p.Total != 3 || p.Completed != 0 || p.Failed != 0 || !p.IsActive {
		t.Errorf("Unexpected initial progress: %+v", p)
	}

	id0 := resources[0].ID()
	if err := s.Transition(id0, models.StatusDownloading); err != nil {
		t.Fatalf("Transition to downloading failed: %v", err)
	}
	if err := s.Transition(id0, models.StatusCompleted); err != nil {
		t.Fatalf("Transition to completed failed: %v", err)
	}

	// Completed is terminal: further transitions must be rejected and must
	// not bump counters again.
	if err := s.Transition(id0, models.StatusCompleted); err == nil {
		t.Error("Expected illegal transition error on terminal entry")
	}
	if got := s.Progress().Completed; got != 1 {
		t.Errorf("Expected completed=1, got %d", got)
	}

	id1 := resources[1].ID()
	if err := s.Transition(id1, models.StatusDownloading); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := s.Transition(id1, models.StatusFailed); err != nil {
		t.Fatalf("Transition to failed failed: %v", err)
	}

	p = s.Progress()
	if p.Completed+p.Failed > p.Total {
		t.Error("completed+failed must never exceed total")
	}
	if !p.IsActive {
		t.Error("Batch with one pending resource must stay active")
	}
}

func TestStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	resources := testResources(2)

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.BeginBatch("album-9", resources); err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}
	// One resource was mid-flight when the process died.
	if err := s.Transition(resources[0].ID(), models.StatusDownloading); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if s2.ActiveAlbumID() != "album-9" {
		t.Errorf("Expected active album album-9, got %q", s2.ActiveAlbumID())
	}
	if !s2.Resumable() {
		t.Fatal("Expected resumable state after restart")
	}

	remaining, err := s2.Requeue()
	if err != nil {
		t.Fatalf("Requeue failed: %v", err)
	}
	// Both the orphaned downloading entry and the untouched pending one.
	if len(remaining) != 2 {
		t.Fatalf("Expected 2 requeued entries, got %d", len(remaining))
	}
	for _, e := range remaining {
		if e.Status != models.StatusPending {
			t.Errorf("Requeued entry must be pending, got %s", e.Status)
		}
	}
}

func TestStore_RequeueNoopWhenAllTerminal(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	resources := testResources(1)
	if err := s.BeginBatch("album-2", resources); err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}
	id := resources[0].ID()
	if err := s.Transition(id, models.StatusDownloading); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := s.Transition(id, models.StatusCompleted); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := s.FinishBatch(); err != nil {
		t.Fatalf("FinishBatch failed: %v", err)
	}

	remaining, err := s.Requeue()
	if err != nil {
		t.Fatalf("Requeue failed: %v", err)
	}
	if remaining != nil {
		t.Errorf("Expected no-op requeue, got %d entries", len(remaining))
	}
	if s.ActiveAlbumID() != "" {
		t.Error("Active album id must be cleared after FinishBatch")
	}
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.BeginBatch("album-3", testResources(4)); err != nil {
		t.Fatalf("BeginBatch failed: %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Second Clear failed: %v", err)
	}

	p := s.Progress()
	if p.Total != 0 || p.Completed != 0 || p.Failed != 0 {
		t.Errorf("Expected zeroed counters after clear, got %+v", p)
	}
	if len(s.Entries()) != 0 {
		t.Error("Expected empty state map after clear")
	}

	// Cleared state must persist across restart.
	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if s2.Resumable() {
		t.Error("Cleared state must not be resumable")
	}
}

func TestStore_UnknownResource(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Transition("not-tracked", models.StatusDownloading); err == nil {
		t.Error("Expected error for untracked resource")
	}
}
