// Package models defines the shared domain types for network photo acquisition:
// servers, remote resources, download state, and virtual albums.
package models

import "github.com/google/uuid"

// idNamespace is the fixed UUID namespace for deterministic resource and
// album identity. Deriving ids from (server id, path) means a resumed batch
// reattaches to the same album and the same per-resource state entries.
var idNamespace = uuid.MustParse("9f2c1b4e-7a63-4d8a-b1f0-5c6e2d9a8f41")

// NetworkServer is a file-sharing server on the local network, either
// resolved by discovery or entered manually by the user.
type NetworkServer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	IsManual bool   `json:"isManual"`
}

// NewDiscoveredServer creates an ephemeral server record for a resolved
// discovery match. The id is a fresh UUID; discovered servers are not
// persisted unless promoted into the registry.
func NewDiscoveredServer(name, address string) NetworkServer {
	return NetworkServer{
		ID:      uuid.NewString(),
		Name:    name,
		Address: address,
	}
}

// NewManualServer creates a user-entered server record. Manual servers are
// persisted by the registry and survive restarts.
func NewManualServer(name, address, username, password string) NetworkServer {
	return NetworkServer{
		ID:       uuid.NewString(),
		Name:     name,
		Address:  address,
		Username: username,
		Password: password,
		IsManual: true,
	}
}

// HasCredentials reports whether the server carries explicit credentials.
// Servers without credentials are accessed as guest.
func (s NetworkServer) HasCredentials() bool {
	return s.Username != ""
}

// StableID derives a deterministic id from a server id and a remote path.
// Used for per-resource download identity, cache keys, and album ids.
func StableID(serverID, path string) string {
	return uuid.NewSHA1(idNamespace, []byte(serverID+"\n"+path)).String()
}
