package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory ObjectStore used in tests and local
// development without an S3 endpoint.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailKeys lists keys whose GetObject should fail, for tests exercising
	// partial-failure behavior.
	FailKeys map[string]bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string][]byte),
		FailKeys: make(map[string]bool),
	}
}

// GetObject retrieves object bytes by key.
func (s *MemoryStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailKeys[key] {
		return nil, fmt.Errorf("get object %s: injected failure", key)
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("get object %s: not found", key)
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

// PutObject stores object bytes under the given key.
func (s *MemoryStore) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	s.objects[key] = copied
	return nil
}

// DeleteObject removes an object.
func (s *MemoryStore) DeleteObject(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// DeleteObjects removes a batch of objects.
func (s *MemoryStore) DeleteObjects(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.objects, key)
	}
	return nil
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
