// Package redis implements a BlobStore backend on a Redis server.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"todolite/backend"
)

// Config holds Redis backend configuration
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string // Prepended to every key, e.g. "todolite:"
}

// Backend implements backend.BlobStore using Redis string values
type Backend struct {
	rdb    *goredis.Client
	config Config
}

// New creates a Redis backend and checks the server is reachable
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Addr, err)
	}

	return &Backend{rdb: rdb, config: cfg}, nil
}

func (b *Backend) key(k string) string {
	return b.config.Prefix + k
}

// Get returns the value stored under key
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.rdb.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Put overwrites the value stored under key. No expiry is set.
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := backend.ValidateKey(key); err != nil {
		return err
	}
	return b.rdb.Set(ctx, b.key(key), value, 0).Err()
}

// Delete removes key
func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, b.key(key)).Err()
}

// Describe returns the server address and database
func (b *Backend) Describe() string {
	return fmt.Sprintf("redis://%s/%d", b.config.Addr, b.config.DB)
}

// Close closes the client
func (b *Backend) Close() error {
	return b.rdb.Close()
}

var _ backend.BlobStore = (*Backend)(nil)
