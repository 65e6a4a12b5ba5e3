// Package registry holds the set of known file-sharing servers. Manually
// added servers are persisted as a JSON array; discovered servers live only
// for the session unless promoted.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/framefeed/framefeed/internal/models"
)

const serversFile = "servers.json"

// Registry is the in-memory server set backed by a JSON file for manual
// entries. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]models.NetworkServer
	path    string
}

// Open loads the registry from dataDir, creating the directory if needed.
func Open(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	r := &Registry{
		servers: make(map[string]models.NetworkServer),
		path:    filepath.Join(dataDir, serversFile),
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read server registry: %w", err)
	}

	var persisted []models.NetworkServer
	if err := json.Unmarshal(data, &persisted); err != nil {
		return nil, fmt.Errorf("failed to parse server registry: %w", err)
	}
	for _, s := range persisted {
		r.servers[s.ID] = s
	}
	return r, nil
}

// Add inserts or replaces a server. Manual servers are persisted
// immediately; discovered servers stay in memory only.
func (r *Registry) Add(server models.NetworkServer) error {
	if server.ID == "" {
		return fmt.Errorf("server id must not be empty")
	}
	if server.Address == "" {
		return fmt.Errorf("server address must not be empty")
	}

	r.mu.Lock()
	r.servers[server.ID] = server
	r.mu.Unlock()

	if server.IsManual {
		return r.save()
	}
	return nil
}

// Promote marks a discovered server as manual so it survives the session.
func (r *Registry) Promote(id string) error {
	r.mu.Lock()
	server, ok := r.servers[id]
	if ok {
		server.IsManual = true
		r.servers[id] = server
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("server %s not found", id)
	}
	return r.save()
}

// Remove deletes a server by id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	server, ok := r.servers[id]
	if ok {
		delete(r.servers, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("server %s not found", id)
	}
	if server.IsManual {
		return r.save()
	}
	return nil
}

// Get returns a server by id.
func (r *Registry) Get(id string) (models.NetworkServer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.servers[id]
	return s, ok
}

// FindByName returns the first server whose display name matches.
func (r *Registry) FindByName(name string) (models.NetworkServer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.servers {
		if s.Name == name {
			return s, true
		}
	}
	return models.NetworkServer{}, false
}

// List returns all known servers sorted by name for stable display.
func (r *Registry) List() []models.NetworkServer {
	r.mu.RLock()
	out := make([]models.NetworkServer, 0, len(r.servers))
	for _, s := range r.servers {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// save persists the manual subset as a JSON array via temp-file rename so a
// crash mid-write never corrupts the registry.
func (r *Registry) save() error {
	r.mu.RLock()
	manual := make([]models.NetworkServer, 0, len(r.servers))
	for _, s := range r.servers {
		if s.IsManual {
			manual = append(manual, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(manual, func(i, j int) bool { return manual[i].ID < manual[j].ID })

	data, err := json.MarshalIndent(manual, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal server registry: %w", err)
	}

	tmpPath := r.path + ".tmp"
	// 0600: the registry may hold share credentials.
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp registry file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename registry file: %w", err)
	}
	return nil
}
