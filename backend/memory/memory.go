// Package memory provides an in-process BlobStore, used by tests and as a
// scratch backend.
package memory

import (
	"context"
	"sync"

	"todolite/backend"
)

// Backend keeps values in a map.
type Backend struct {
	mu     sync.RWMutex
	values map[string][]byte

	// FailPut, when set, is returned by every Put. Tests use it to exercise
	// the store's rollback path.
	FailPut error
	Puts    int
}

// New creates an empty memory backend
func New() *Backend {
	return &Backend{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key
func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.values[key]
	if !ok {
		return nil, backend.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Put stores a copy of value
func (b *Backend) Put(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailPut != nil {
		return b.FailPut
	}
	b.values[key] = append([]byte(nil), value...)
	b.Puts++
	return nil
}

// Delete removes key
func (b *Backend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	return nil
}

// Close is a no-op
func (b *Backend) Close() error {
	return nil
}

// Describe names the backend
func (b *Backend) Describe() string {
	return "memory"
}

var _ backend.BlobStore = (*Backend)(nil)
