package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/framefeed/framefeed/internal/models"
)

func TestRegistry_AddGetRemove(t *testing.T) {
	r, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	server := models.NetworkServer{
		ID:       "nas-1",
		Name:     "OFFICE-NAS",
		Address:  "192.168.1.20",
		IsManual: true,
	}
	if err := r.Add(server); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, ok := r.Get("nas-1")
	if !ok {
		t.Fatal("Expected server to be found")
	}
	if got.Name != "OFFICE-NAS" {
		t.Errorf("Expected name OFFICE-NAS, got %s", got.Name)
	}

	if err := r.Remove("nas-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := r.Get("nas-1"); ok {
		t.Error("Expected server to be gone after Remove")
	}
	if err := r.Remove("nas-1"); err == nil {
		t.Error("Expected error removing unknown server")
	}
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	r, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := r.Add(models.NetworkServer{Name: "x", Address: "y"}); err == nil {
		t.Error("Expected error for empty id")
	}
	if err := r.Add(models.NetworkServer{ID: "x", Name: "y"}); err == nil {
		t.Error("Expected error for empty address")
	}
}

func TestRegistry_PersistsOnlyManual(t *testing.T) {
	dir := t.TempDir()

	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	manual := models.NetworkServer{ID: "m1", Name: "MANUAL", Address: "10.0.0.1", Username: "frame", IsManual: true}
	discovered := models.NewDiscoveredServer("EPHEMERAL", "10.0.0.2")
	if err := r.Add(manual); err != nil {
		t.Fatalf("Add manual failed: %v", err)
	}
	if err := r.Add(discovered); err != nil {
		t.Fatalf("Add discovered failed: %v", err)
	}

	// Reopen simulates process restart.
	r2, err := Open(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if _, ok := r2.Get("m1"); !ok {
		t.Error("Manual server must survive restart")
	}
	if _, ok := r2.Get(discovered.ID); ok {
		t.Error("Discovered server must not survive restart")
	}

	// Registry file may hold credentials; must be owner-only.
	info, err := os.Stat(filepath.Join(dir, "servers.json"))
	if err != nil {
		t.Fatalf("Stat registry file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected registry file mode 0600, got %v", info.Mode().Perm())
	}
}

func TestRegistry_Promote(t *testing.T) {
	dir := t.TempDir()

	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	discovered := models.NewDiscoveredServer("LIVINGROOM", "10.0.0.3")
	if err := r.Add(discovered); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Promote(discovered.ID); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if err := r.Promote("missing"); err == nil {
		t.Error("Expected error promoting unknown server")
	}

	r2, err := Open(dir)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	got, ok := r2.Get(discovered.ID)
	if !ok {
		t.Fatal("Promoted server must survive restart")
	}
	if !got.IsManual {
		t.Error("Promoted server must be marked manual")
	}
}

func TestRegistry_FindByNameAndList(t *testing.T) {
	r, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for _, s := range []models.NetworkServer{
		{ID: "b", Name: "BETA", Address: "2", IsManual: true},
		{ID: "a", Name: "ALPHA", Address: "1", IsManual: true},
	} {
		if err := r.Add(s); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	if _, ok := r.FindByName("ALPHA"); !ok {
		t.Error("Expected to find ALPHA by name")
	}
	list := r.List()
	if len(list) != 2 || list[0].Name != "ALPHA" || list[1].Name != "BETA" {
		t.Errorf("Expected name-sorted list, got %+v", list)
	}
}
