// Package storage defines the byte-level persistence contract the vault
// engine writes through. The engine never touches disks or sockets itself;
// every blob goes through a Driver registered under a storage-credential id.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrFileNotFound       = errors.New("storage: file not found")
	ErrCredentialNotFound = errors.New("storage: credentials not found")
)

// Driver is the byte-storage backend contract. Implementations cover local
// disk, object storage and SFTP elsewhere; this module ships an in-memory
// driver and a Badger-backed driver.
type Driver interface {
	PutFile(ctx context.Context, path string, data []byte) error
	GetFile(ctx context.Context, path string) ([]byte, error)
	FileExists(ctx context.Context, path string) (bool, error)
	RemoveDirectory(ctx context.Context, path string, recursive bool) error
}

// Registry maps storage-credential ids to configured drivers. The link
// resolver uses it to find the backend a remote vault lives on.
type Registry struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]Driver)}
}

func (r *Registry) Register(id string, d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[id] = d
}

func (r *Registry) Get(id string) (Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drivers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
	}
	return d, nil
}
