// Package file implements a BlobStore backend that keeps each key in its own JSON file.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"todolite/backend"
)

// Config holds file backend configuration
type Config struct {
	Dir string // Directory holding one file per key
}

// Backend implements backend.BlobStore for file-based storage
type Backend struct {
	config Config
	dir    string // Resolved absolute path
}

// New creates a new file backend
func New(cfg Config) (*Backend, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}

	// Resolve relative paths
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Backend{
		config: cfg,
		dir:    dir,
	}, nil
}

// Close closes the backend
func (b *Backend) Close() error {
	return nil
}

// Describe returns the directory the backend writes to
func (b *Backend) Describe() string {
	return b.dir
}

// Path returns the file that stores key
func (b *Backend) Path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

// Get reads the file for key
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := backend.ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Put replaces the file for key. The value is written to a temporary file
// in the same directory and renamed over the old one, so readers never see
// a half-written blob.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := backend.ValidateKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	if err := os.Rename(tmpName, b.Path(key)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}
	return nil
}

// Delete removes the file for key
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := backend.ValidateKey(key); err != nil {
		return err
	}
	err := os.Remove(b.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Verify interface compliance at compile time
var _ backend.BlobStore = (*Backend)(nil)
