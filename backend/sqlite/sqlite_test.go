package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"todolite/backend"
)

// mustNewBackend creates an in-memory backend and registers cleanup
func mustNewBackend(t *testing.T) (*Backend, context.Context) {
	t.Helper()
	b, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b, context.Background()
}

// TestNewBackend verifies that New creates a backend with the given path.
func TestNewBackend(t *testing.T) {
	b, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error: %v", err)
	}
	defer func() { _ = b.Close() }()

	if b == nil {
		t.Fatal("New(:memory:) returned nil backend")
	}
}

// TestBackendImplementsInterface verifies the Backend type implements BlobStore.
func TestBackendImplementsInterface(t *testing.T) {
	var _ backend.BlobStore = (*Backend)(nil)
}

func TestGetMissingKey(t *testing.T) {
	b, ctx := mustNewBackend(t)

	if _, err := b.Get(ctx, backend.DefaultTasksKey); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := b.Modified(ctx, backend.DefaultTasksKey); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Modified() error = %v, want ErrNotFound", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	b, ctx := mustNewBackend(t)

	if err := b.Put(ctx, backend.DefaultTasksKey, []byte(`[{"id":1,"text":"a"}]`)); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := b.Put(ctx, backend.DefaultTasksKey, []byte(`[]`)); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, err := b.Get(ctx, backend.DefaultTasksKey)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got) != "[]" {
		t.Errorf("Get() = %q, want %q", got, "[]")
	}

	modified, err := b.Modified(ctx, backend.DefaultTasksKey)
	if err != nil {
		t.Fatalf("Modified error: %v", err)
	}
	if modified.IsZero() {
		t.Error("Modified() returned zero time")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	b, ctx := mustNewBackend(t)

	if err := b.Put(ctx, backend.DefaultTasksKey, []byte("tasks")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := b.Put(ctx, backend.DarkModeKey, []byte("true")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := b.Delete(ctx, backend.DarkModeKey); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	got, err := b.Get(ctx, backend.DefaultTasksKey)
	if err != nil || string(got) != "tasks" {
		t.Errorf("Get(tasks) = %q, %v; want %q", got, err, "tasks")
	}
	if _, err := b.Get(ctx, backend.DarkModeKey); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Get(dark mode) error = %v, want ErrNotFound", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todolite.db")
	ctx := context.Background()

	b, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := b.Put(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	_ = b.Close()

	b2, err := New(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer func() { _ = b2.Close() }()

	got, err := b2.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get after reopen = %q, %v; want %q", got, err, "v")
	}
}

func TestBusyTimeoutIsSet(t *testing.T) {
	b, err := New(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer func() { _ = b.Close() }()

	var ms int64
	if err := b.db.QueryRow("PRAGMA busy_timeout").Scan(&ms); err != nil {
		t.Fatalf("PRAGMA busy_timeout error: %v", err)
	}
	if ms != BusyTimeout.Milliseconds() {
		t.Errorf("busy_timeout = %d, want %d", ms, BusyTimeout.Milliseconds())
	}
}

func TestModifiedAdvancesOnPut(t *testing.T) {
	b, ctx := mustNewBackend(t)
	if err := b.Put(ctx, backend.DefaultTasksKey, []byte(`[]`)); err != nil {
		t.Fatal(err)
	}
	first, _ := b.Modified(ctx, backend.DefaultTasksKey)
	if err := b.Put(ctx, backend.DefaultTasksKey, []byte(`[{"id":1,"text":"a"}]`)); err != nil {
		t.Fatal(err)
	}
	second, _ := b.Modified(ctx, backend.DefaultTasksKey)
	if !second.After(first) {
		t.Errorf("Modified did not advance: %v then %v", first, second)
	}
}
