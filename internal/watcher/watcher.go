// Package watcher notices when another process rewrites the task files.
// The file backend replaces a key by renaming a temp file over it, so the
// watcher follows the directory and matches events by file name.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"todolite/internal/utils"
)

// DefaultDebounceDuration batches the create and rename events of one save.
const DefaultDebounceDuration = 200 * time.Millisecond

// Config holds file watcher configuration.
type Config struct {
	Files            []string      // Files to follow; their directories are watched
	DebounceDuration time.Duration // Window that collapses bursts into one callback
	OnChange         func()        // Called after a followed file changed
}

// DefaultConfig returns a Config following files with the default debounce.
func DefaultConfig(onChange func(), files ...string) *Config {
	return &Config{
		Files:            files,
		DebounceDuration: DefaultDebounceDuration,
		OnChange:         onChange,
	}
}

// Watcher reports changes to a set of files.
type Watcher struct {
	cfg     *Config
	fsw     *fsnotify.Watcher
	names   map[string]bool
	stopCh  chan struct{}
	stopped bool
	mu      sync.Mutex
}

// New creates a new Watcher instance.
func New(cfg *Config) (*Watcher, error) {
	if cfg.DebounceDuration <= 0 {
		cfg.DebounceDuration = DefaultDebounceDuration
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	names := make(map[string]bool, len(cfg.Files))
	for _, f := range cfg.Files {
		if abs, err := filepath.Abs(f); err == nil {
			names[abs] = true
		}
	}

	return &Watcher{
		cfg:    cfg,
		fsw:    fsw,
		names:  names,
		stopCh: make(chan struct{}),
	}, nil
}

// Start begins watching the directories of the configured files.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("watcher has been stopped and cannot be restarted")
	}
	w.mu.Unlock()

	dirs := make(map[string]bool)
	for name := range w.names {
		dirs[filepath.Dir(name)] = true
	}
	for dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			// Nothing saved yet; the backend creates the directory on open.
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %q: %w", dir, err)
		}
	}

	go w.eventLoop()
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopCh)
	_ = w.fsw.Close()
}

func (w *Watcher) follows(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return w.names[abs]
}

// eventLoop debounces matching events into OnChange calls.
func (w *Watcher) eventLoop() {
	var debounceTimer *time.Timer
	debounceCh := make(chan struct{}, 1)

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !w.follows(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.cfg.DebounceDuration, func() {
				select {
				case debounceCh <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			utils.Warnf("file watcher: %v", err)

		case <-debounceCh:
			if w.cfg.OnChange != nil {
				w.cfg.OnChange()
			}
		}
	}
}
