package backend

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Keys used by the task store. They match the local-storage keys the
// browser version wrote, so exported blobs stay interchangeable.
const (
	DefaultTasksKey = "todoLiteTasks"
	DarkModeKey     = "todoLiteDarkMode"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("key not found")

// BlobStore defines the interface for task storage backends.
//
// A backend holds opaque values under string keys and gives no guarantee
// beyond whole-value overwrite: Put replaces the previous value entirely.
type BlobStore interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put overwrites the value stored under key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Connection management
	Close() error
}

// Versioned is implemented by backends that record when a key was last
// written, so readers can skip reloading an unchanged value.
type Versioned interface {
	// Modified returns the time of the last Put of key, or ErrNotFound.
	Modified(ctx context.Context, key string) (time.Time, error)
}

// Describer is implemented by backends that can report where they keep data.
type Describer interface {
	Describe() string
}

// Describe returns a human-readable location for a store, falling back to
// its backend name when the store does not implement Describer.
func Describe(s BlobStore, name string) string {
	if d, ok := s.(Describer); ok {
		return d.Describe()
	}
	return name
}

// ValidateKey rejects keys that cannot be mapped onto every backend
// (the file backend turns keys into file names).
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("storage key cannot be empty")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return errors.New("storage key cannot contain path separators")
	}
	return nil
}
