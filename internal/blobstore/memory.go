package blobstore

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"pm-go/internal/pm"
)

// MemoryBlobStore is an in-memory implementation of pm.BlobStore.
// It is useful for testing and for throwaway sessions.
// This implementation is safe for concurrent use.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	dirs  map[string]bool
}

// NewMemoryBlobStore creates an empty store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (m *MemoryBlobStore) Exists(_ context.Context, p string) (bool, error) {
	key, err := cleanPath(p)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blobs[key]
	return ok || m.dirs[key], nil
}

func (m *MemoryBlobStore) Read(_ context.Context, p string) ([]byte, error) {
	key, err := cleanPath(p)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pm.ErrBlobNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBlobStore) Write(_ context.Context, p string, data []byte) error {
	key, err := cleanPath(p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[key] = append([]byte(nil), data...)
	if dir := path.Dir(key); dir != "." {
		m.dirs[dir] = true
	}
	return nil
}

func (m *MemoryBlobStore) Delete(_ context.Context, p string) error {
	key, err := cleanPath(p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, key)
	return nil
}

func (m *MemoryBlobStore) CreateDirectory(_ context.Context, p string) error {
	key, err := cleanPath(p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs[key] = true
	return nil
}

// Paths returns all stored blob paths in sorted order.
func (m *MemoryBlobStore) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.blobs))
	for p := range m.blobs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Compile-time check that MemoryBlobStore implements pm.BlobStore interface
var _ pm.BlobStore = (*MemoryBlobStore)(nil)
