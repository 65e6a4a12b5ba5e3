package cache

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type failingReader struct {
	data []byte
	err  error
	read bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.read {
		f.read = true
		n := copy(p, f.data)
		return n, nil
	}
	return 0, f.err
}

func TestDiskCache_Put(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}

	uri, err := c.Put(strings.NewReader("jpeg bytes"), "photo-1", ".jpg")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasPrefix(uri, "file://") {
		t.Errorf("Expected file:// uri, got %s", uri)
	}

	data, err := os.ReadFile(filepath.Join(dir, "photo-1.jpg"))
	if err != nil {
		t.Fatalf("Cache entry missing: %v", err)
	}
	if string(data) != "jpeg bytes" {
		t.Errorf("Unexpected entry content: %q", data)
	}
}

func TestDiskCache_StableURI(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	uri1, err := c.Put(strings.NewReader("a"), "photo-1", ".png")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	uri2, err := c.Put(strings.NewReader("a"), "photo-1", ".png")
	if err != nil {
		t.Fatalf("Second Put failed: %v", err)
	}
	if uri1 != uri2 {
		t.Errorf("Same photo id must map to the same uri: %s vs %s", uri1, uri2)
	}
}

func TestDiskCache_NoPartialEntryOnFailure(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}

	r := &failingReader{data: []byte("partial"), err: errors.New("connection reset")}
	if _, err := c.Put(r, "photo-2", ".jpg"); err == nil {
		t.Fatal("Expected Put to fail")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Failed Put must leave no entry behind, found %d files", len(entries))
	}
}

var _ io.Reader = (*failingReader)(nil)
