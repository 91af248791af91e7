package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
	"todolite/backend"
)

// Backend implements backend.BlobStore using SQLite
type Backend struct {
	db     *sql.DB
	dbPath string
}

// BusyTimeout is how long a write waits for another process holding the
// database lock, e.g. `todolite watch` and a CLI command saving together.
const BusyTimeout = 5 * time.Second

// New creates a new SQLite backend and initializes the database schema
func New(path string) (*Backend, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", path, BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// :memory: databases are per-connection
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	b := &Backend{db: db, dbPath: path}
	if err := b.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return b, nil
}

// initSchema creates the database tables if they don't exist
func (b *Backend) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS blobs (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			modified TEXT NOT NULL
		);
	`
	_, err := b.db.Exec(schema)
	return err
}

// Get returns the value stored under key
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, "SELECT value FROM blobs WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put overwrites the value stored under key
func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := backend.ValidateKey(key); err != nil {
		return err
	}
	nowStr := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO blobs (key, value, modified) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, modified = excluded.modified`,
		key, value, nowStr,
	)
	return err
}

// Delete removes key
func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, "DELETE FROM blobs WHERE key = ?", key)
	return err
}

// Modified returns when key was last written
func (b *Backend) Modified(ctx context.Context, key string) (time.Time, error) {
	var modifiedStr string
	err := b.db.QueryRowContext(ctx, "SELECT modified FROM blobs WHERE key = ?", key).Scan(&modifiedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, backend.ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	modified, _ := time.Parse(time.RFC3339Nano, modifiedStr)
	return modified, nil
}

// Describe returns the database path
func (b *Backend) Describe() string {
	return b.dbPath
}

// Close closes the database connection
func (b *Backend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Verify interface compliance at compile time
var (
	_ backend.BlobStore = (*Backend)(nil)
	_ backend.Versioned = (*Backend)(nil)
)
