// Package shutdown stops long-running commands such as `todolite watch`.
// A signal or an explicit Shutdown cancels the manager's context; Wait then
// runs the registered cleanups, newest first.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"todolite/internal/utils"
)

// ErrShutdown is the context cause after an explicit Shutdown.
var ErrShutdown = errors.New("shutdown requested")

// CleanupFunc releases one resource. ctx expires when Wait gives up.
type CleanupFunc func(ctx context.Context) error

type cleanup struct {
	name string
	fn   CleanupFunc
}

// Manager owns the cancellation of one command run.
type Manager struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	down   atomic.Bool

	mu       sync.Mutex
	cleanups []cleanup
}

// NewManager creates a new shutdown manager.
func NewManager() *Manager {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Manager{ctx: ctx, cancel: cancel}
}

// RegisterCleanup adds fn to the cleanups Wait runs.
func (m *Manager) RegisterCleanup(name string, fn CleanupFunc) {
	m.mu.Lock()
	m.cleanups = append(m.cleanups, cleanup{name: name, fn: fn})
	m.mu.Unlock()
}

// Shutdown cancels Context. Later calls do nothing.
func (m *Manager) Shutdown() {
	m.stop(ErrShutdown)
}

func (m *Manager) stop(cause error) {
	if m.down.CompareAndSwap(false, true) {
		m.cancel(cause)
	}
}

// NotifyOnSignal shuts down when one of sigs arrives. The returned
// function stops listening and may be called more than once.
func (m *Manager) NotifyOnSignal(sigs ...os.Signal) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			utils.Debugf("received %s, shutting down", sig)
			m.stop(fmt.Errorf("%w: %s", ErrShutdown, sig))
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// Wait runs the cleanups newest first and returns when they finish or ctx
// expires. A failing cleanup is logged and does not stop the rest.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	pending := append([]cleanup(nil), m.cleanups...)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := len(pending) - 1; i >= 0; i-- {
			if err := pending[i].fn(ctx); err != nil {
				utils.Warnf("cleanup %s failed: %v", pending[i].name, err)
			}
		}
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown reports whether shutdown has started.
func (m *Manager) IsShutdown() bool {
	return m.down.Load()
}

// Context is cancelled when shutdown starts. context.Cause reports why.
func (m *Manager) Context() context.Context {
	return m.ctx
}
