package models

import (
	"path"
	"strings"
	"time"
)

// imageExtensions is the fixed allow-list used to classify remote entries.
// Keys include the leading dot to match path.Ext output.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// NetworkResource is a single entry in a remote directory listing.
// Resources are produced transiently by a browse call and never persisted
// on their own; only download-state entries embed them.
//
// Invariant: IsImage implies !IsDirectory.
type NetworkResource struct {
	Server       NetworkServer `json:"server"`
	Path         string        `json:"path"`
	Name         string        `json:"name"`
	IsDirectory  bool          `json:"isDirectory"`
	IsImage      bool          `json:"isImage"`
	Size         int64         `json:"size"`
	LastModified time.Time     `json:"lastModified"`
}

// ID returns the resource's deterministic identity, derived from the owning
// server id and the remote path.
func (r NetworkResource) ID() string {
	return StableID(r.Server.ID, r.Path)
}

// Ext returns the lower-cased file extension including the dot.
func (r NetworkResource) Ext() string {
	return strings.ToLower(path.Ext(r.Name))
}

// IsImageName reports whether a file name carries an extension from the
// image allow-list. Directories are never images regardless of name.
func IsImageName(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(name))]
}
