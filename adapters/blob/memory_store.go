package blob

import (
	"context"
	"sync"

	"github.com/Kizaaaa/certichain/core"
)

const memoryScheme = "mem"

// MemoryStore is an in-process content-addressed store for tests and demos
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put implements ports.BlobStore
func (s *MemoryStore) Put(ctx context.Context, data []byte, name string) (string, error) {
	key := contentKey(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)

	return memoryScheme + "://" + key, nil
}

// Get implements ports.BlobStore
func (s *MemoryStore) Get(ctx context.Context, locator string) ([]byte, error) {
	key, err := splitLocator(locator, memoryScheme)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, core.ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

// Replace overwrites the bytes behind a locator. Tests use it to simulate a
// store that serves something other than what was uploaded.
func (s *MemoryStore) Replace(locator string, data []byte) {
	key, err := splitLocator(locator, memoryScheme)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
}
