package models

import "time"

// VirtualAlbum groups downloaded photo URIs outside the device's native
// media index. One album exists per download batch (one folder tree); its
// id is derived from (server id, root path) so resuming a batch reattaches
// to the same album.
type VirtualAlbum struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PhotoURIs   []string  `json:"photoUris"`
	DateCreated time.Time `json:"dateCreated"`
	IsSelected  bool      `json:"isSelected"`
}

// MediaItem is one ingested photo as handed to the photo library sink.
type MediaItem struct {
	ID      string    `json:"id"`
	URI     string    `json:"uri"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"addedAt"`
}

// AddMode controls how the photo library sink merges incoming items.
type AddMode string

const (
	AddModeAppend  AddMode = "append"
	AddModeMerge   AddMode = "merge"
	AddModeReplace AddMode = "replace"
)
