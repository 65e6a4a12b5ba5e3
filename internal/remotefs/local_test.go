package remotefs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/framefeed/framefeed/internal/models"
)

func localTestServer(t *testing.T) (models.NetworkServer, string) {
	t.Helper()
	root := t.TempDir()

	mustWrite := func(rel string, data []byte) {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("photos/a.jpg", []byte("jpeg bytes"))
	mustWrite("photos/b.png", []byte("png bytes"))
	mustWrite("photos/notes.txt", []byte("text"))
	mustWrite("photos/.thumbs/t.jpg", []byte("thumb"))
	mustWrite("photos/nested/c.gif", []byte("gif"))

	server := models.NetworkServer{
		ID:      "local-1",
		Name:    "MOUNTED",
		Address: "file://" + root,
	}
	return server, root
}

func TestLocalBrowser_Browse(t *testing.T) {
	server, _ := localTestServer(t)
	b := NewLocalBrowser()

	resources, err := b.Browse(context.Background(), server, "photos")
	if err != nil {
		t.Fatalf("Browse: %v", err)
	}

	// Dirs first, then files by name; the dotted directory is hidden.
	wantNames := []string{"nested", "a.jpg", "b.png", "notes.txt"}
	if len(resources) != len(wantNames) {
		t.Fatalf("got %d entries, want %d: %+v", len(resources), len(wantNames), resources)
	}
	for i, want := range wantNames {
		if resources[i].Name != want {
			t.Errorf("entry %d = %q, want %q", i, resources[i].Name, want)
		}
	}
	if !resources[0].IsDirectory {
		t.Error("nested should be a directory")
	}
	if !resources[1].IsImage || resources[3].IsImage {
		t.Error("image classification wrong")
	}
}

func TestLocalBrowser_BrowseMissingDir(t *testing.T) {
	server, _ := localTestServer(t)
	b := NewLocalBrowser()

	_, err := b.Browse(context.Background(), server, "photos/absent")
	var berr *BrowseError
	if !errors.As(err, &berr) || berr.Kind != ErrKindNotFound {
		t.Fatalf("got %v, want not_found BrowseError", err)
	}
}

func TestLocalBrowser_RejectsEscapingPaths(t *testing.T) {
	server, _ := localTestServer(t)
	b := NewLocalBrowser()

	_, err := b.Browse(context.Background(), server, "../outside")
	var berr *BrowseError
	if !errors.As(err, &berr) {
		t.Fatalf("escaping path returned %v, want BrowseError", err)
	}
}

func TestLocalBrowser_Open(t *testing.T) {
	server, _ := localTestServer(t)
	b := NewLocalBrowser()

	rc, size, err := b.Open(context.Background(), models.NetworkResource{
		Server: server,
		Path:   "photos/a.jpg",
		Name:   "a.jpg",
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Errorf("read %q", data)
	}
	if size != int64(len(data)) {
		t.Errorf("size = %d, want %d", size, len(data))
	}
}
