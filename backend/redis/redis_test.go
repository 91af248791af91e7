package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"todolite/backend"
)

// mustNewBackend connects to the server named by REDIS_ADDR. Each test
// gets its own key prefix so runs do not interfere.
func mustNewBackend(t *testing.T) (*Backend, context.Context) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis integration test")
	}

	ctx := context.Background()
	b, err := New(ctx, Config{
		Addr:   addr,
		Prefix: fmt.Sprintf("todolite-test:%d:", time.Now().UnixNano()),
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() {
		_ = b.Delete(ctx, backend.DefaultTasksKey)
		_ = b.Close()
	})
	return b, ctx
}

func TestNewUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := New(ctx, Config{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestPutGetDelete(t *testing.T) {
	b, ctx := mustNewBackend(t)

	if _, err := b.Get(ctx, backend.DefaultTasksKey); !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if err := b.Put(ctx, backend.DefaultTasksKey, []byte(`[]`)); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, err := b.Get(ctx, backend.DefaultTasksKey)
	if err != nil || string(got) != "[]" {
		t.Fatalf("Get() = %q, %v; want %q", got, err, "[]")
	}
	if err := b.Delete(ctx, backend.DefaultTasksKey); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := b.Get(ctx, backend.DefaultTasksKey); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
}
