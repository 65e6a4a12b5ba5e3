package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskCache stores photos as files under a cache directory. Writes go to a
// temp file first and are renamed into place, so an interrupted download
// never leaves a half-written entry under the final name.
type DiskCache struct {
	dir string
}

// NewDiskCache creates the cache directory if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Put implements Cache.
func (c *DiskCache) Put(r io.Reader, photoID, ext string) (string, error) {
	finalPath := filepath.Join(c.dir, photoID+ext)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create cache temp file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to sync cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close cache entry: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move cache entry into place: %w", err)
	}
	return "file://" + finalPath, nil
}

// Path returns the cache directory.
func (c *DiskCache) Path() string {
	return c.dir
}
