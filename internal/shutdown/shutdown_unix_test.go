//go:build unix

package shutdown_test

import (
	"context"
	"strings"
	"syscall"
	"testing"
	"time"

	"todolite/internal/shutdown"
)

func TestNotifyOnSignal(t *testing.T) {
	mgr := shutdown.NewManager()
	stop := mgr.NotifyOnSignal(syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Skipf("cannot signal self: %v", err)
	}

	select {
	case <-mgr.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not trigger shutdown")
	}
	if cause := context.Cause(mgr.Context()); !strings.Contains(cause.Error(), "user defined signal 1") {
		t.Errorf("cause = %v, want the signal name", cause)
	}
}

func TestNotifyOnSignalStop(t *testing.T) {
	mgr := shutdown.NewManager()
	stop := mgr.NotifyOnSignal(syscall.SIGUSR2)
	stop()
	stop()

	if mgr.IsShutdown() {
		t.Error("stop triggered shutdown")
	}
}
