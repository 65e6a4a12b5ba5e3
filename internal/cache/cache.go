// Package cache defines the local photo cache collaborator: it accepts a
// downloaded byte stream keyed by a stable photo id and returns a local URI
// that can be resolved later by the presentation layer.
package cache

import "io"

// Cache stores downloaded photo bytes. A failed Put must leave no partial
// entry behind.
type Cache interface {
	// Put streams r into the cache under photoID and returns the entry's
	// stable URI. ext is the original file extension including the dot;
	// it is preserved so renderers can sniff by name.
	Put(r io.Reader, photoID, ext string) (uri string, err error)

	// Path returns the cache's root directory, used for free-space checks
	// before a batch commits to filling it.
	Path() string
}
