package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryDriver keeps blobs in a map. It backs tests and short-lived engines.
type MemoryDriver struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{files: make(map[string][]byte)}
}

func (m *MemoryDriver) PutFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.files[path] = cp
	return nil
}

func (m *MemoryDriver) GetFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	if !ok {
		return nil, ErrFileNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryDriver) FileExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[path]
	return ok, nil
}

func (m *MemoryDriver) RemoveDirectory(ctx context.Context, path string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(path, "/") + "/"
	for key := range m.files {
		if key == path {
			delete(m.files, key)
			continue
		}
		if recursive && strings.HasPrefix(key, prefix) {
			delete(m.files, key)
		}
	}
	return nil
}
