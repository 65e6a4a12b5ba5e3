// Package album stores virtual albums: application-level photo groupings
// that are not backed by the device's native media index. Albums are
// created empty before the first download finishes so the UI can show a
// batch the moment it starts.
package album

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/framefeed/framefeed/internal/models"
)

var (
	bucketAlbums  = []byte("albums")
	bucketLibrary = []byte("library")
)

// Store persists albums and the ingested photo library in BoltDB, one JSON
// value per record.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the album database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "albums.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open album db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketAlbums, bucketLibrary} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateOrAttach returns the album with the given id, creating it empty and
// selected when it does not exist yet. A resumed batch reattaches to its
// original album because the id derives from (server id, root path).
func (s *Store) CreateOrAttach(id, name string) (models.VirtualAlbum, error) {
	var album models.VirtualAlbum
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAlbums)
		if data := b.Get([]byte(id)); data != nil {
			return json.Unmarshal(data, &album)
		}
		album = models.VirtualAlbum{
			ID:          id,
			Name:        name,
			PhotoURIs:   []string{},
			DateCreated: time.Now(),
			IsSelected:  true,
		}
		return putJSON(b, id, &album)
	})
	if err != nil {
		return models.VirtualAlbum{}, fmt.Errorf("failed to create album: %w", err)
	}
	return album, nil
}

// AppendPhoto adds a photo URI to the album. Append-only during a batch;
// duplicates from a resumed download are ignored.
func (s *Store) AppendPhoto(albumID, uri string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAlbums)
		data := b.Get([]byte(albumID))
		if data == nil {
			return fmt.Errorf("album %s not found", albumID)
		}
		var album models.VirtualAlbum
		if err := json.Unmarshal(data, &album); err != nil {
			return err
		}
		for _, existing := range album.PhotoURIs {
			if existing == uri {
				return nil
			}
		}
		album.PhotoURIs = append(album.PhotoURIs, uri)
		return putJSON(b, albumID, &album)
	})
	if err != nil {
		return fmt.Errorf("failed to append photo: %w", err)
	}
	return nil
}

// Get returns one album by id.
func (s *Store) Get(id string) (models.VirtualAlbum, bool, error) {
	var album models.VirtualAlbum
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketAlbums).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &album)
	})
	if err != nil {
		return models.VirtualAlbum{}, false, fmt.Errorf("failed to read album: %w", err)
	}
	return album, found, nil
}

// List returns all albums, newest first.
func (s *Store) List() ([]models.VirtualAlbum, error) {
	var albums []models.VirtualAlbum
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAlbums).ForEach(func(_, v []byte) error {
			var a models.VirtualAlbum
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			albums = append(albums, a)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	sort.Slice(albums, func(i, j int) bool { return albums[i].DateCreated.After(albums[j].DateCreated) })
	return albums, nil
}

// Delete removes an album record.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAlbums).Delete([]byte(id))
	})
}

// AddPhotos implements the photo library sink. Merge skips items already in
// the library, append always adds, replace rewrites the whole library. The
// download pipeline only ever uses merge/append semantics.
func (s *Store) AddPhotos(items []models.MediaItem, mode models.AddMode) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLibrary)

		if mode == models.AddModeReplace {
			if err := tx.DeleteBucket(bucketLibrary); err != nil {
				return err
			}
			var err error
			b, err = tx.CreateBucket(bucketLibrary)
			if err != nil {
				return err
			}
		}

		for _, item := range items {
			if mode == models.AddModeMerge && b.Get([]byte(item.ID)) != nil {
				continue
			}
			if err := putJSON(b, item.ID, &item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add photos: %w", err)
	}
	return nil
}

// LibraryItems returns all ingested media items.
func (s *Store) LibraryItems() ([]models.MediaItem, error) {
	var items []models.MediaItem
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLibrary).ForEach(func(_, v []byte) error {
			var m models.MediaItem
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			items = append(items, m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list library: %w", err)
	}
	return items, nil
}

func putJSON(b *bolt.Bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}
