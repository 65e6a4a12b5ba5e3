// Package remotefs abstracts browsing and reading the directory tree of a
// network file-sharing server. Backends implement the wire protocol; this
// package owns entry classification, ordering, and the failure taxonomy.
package remotefs

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/framefeed/framefeed/internal/config"
	"github.com/framefeed/framefeed/internal/models"
)

// Browser lists and reads files on a remote server. A Browse call is all or
// nothing: any authentication, connection, or protocol failure yields a
// *BrowseError and no partial listing. Browsing has no side effects beyond
// network I/O.
type Browser interface {
	// Browse lists the entries of a remote directory, classified and
	// sorted directories-first, then by name ascending case-insensitive.
	Browse(ctx context.Context, server models.NetworkServer, path string) ([]models.NetworkResource, error)

	// Open returns a reader for a remote file's bytes and the size the
	// server reports for it.
	Open(ctx context.Context, res models.NetworkResource) (io.ReadCloser, int64, error)
}

// Timeouts carries the two suspension-point limits every backend honors.
type Timeouts struct {
	Connect time.Duration
	Read    time.Duration
}

// Factory builds the backend matching a server's address form. Addresses
// with an http(s) scheme browse via directory indexes, file:// addresses
// read an OS-mounted directory, and everything else is treated as an SMB
// host.
type Factory struct {
	timeouts Timeouts
}

// NewFactory creates a backend factory from download configuration.
func NewFactory(cfg config.DownloadConfig) *Factory {
	return &Factory{timeouts: Timeouts{Connect: cfg.ConnectTimeout, Read: cfg.ReadTimeout}}
}

// ForServer returns the browser for one server.
func (f *Factory) ForServer(server models.NetworkServer) Browser {
	switch {
	case strings.HasPrefix(server.Address, "http://") || strings.HasPrefix(server.Address, "https://"):
		return NewHTTPIndexBrowser(f.timeouts)
	case strings.HasPrefix(server.Address, "file://"):
		return NewLocalBrowser()
	}
	return NewSMBBrowser(f.timeouts)
}

// Classify builds a NetworkResource from raw listing fields, enforcing that
// directories are never images.
func Classify(server models.NetworkServer, path, name string, isDir bool, size int64, modified time.Time) models.NetworkResource {
	return models.NetworkResource{
		Server:       server,
		Path:         path,
		Name:         name,
		IsDirectory:  isDir,
		IsImage:      !isDir && models.IsImageName(name),
		Size:         size,
		LastModified: modified,
	}
}

// SortResources orders a listing directories-first, then by name ascending
// case-insensitive. Repeat calls over an unchanged folder therefore return
// identically ordered lists.
func SortResources(resources []models.NetworkResource) {
	sort.SliceStable(resources, func(i, j int) bool {
		if resources[i].IsDirectory != resources[j].IsDirectory {
			return resources[i].IsDirectory
		}
		return strings.ToLower(resources[i].Name) < strings.ToLower(resources[j].Name)
	})
}

// JoinPath joins remote path segments with forward slashes, trimming
// duplicate separators. Remote paths never use the OS separator.
func JoinPath(base, name string) string {
	base = strings.Trim(base, "/")
	name = strings.Trim(name, "/")
	if base == "" {
		return name
	}
	if name == "" {
		return base
	}
	return base + "/" + name
}
