package notification

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// logChannel appends one line per notification to a file:
//
//	2026-01-16T10:30:00Z [OVERDUE] TodoLite - Overdue!: pay rent (was due 2026-01-15) (task 42)
type logChannel struct {
	config *LogNotificationConfig
	mu     sync.Mutex
}

// NewLogNotificationChannel creates a channel writing to cfg.Path.
func NewLogNotificationChannel(cfg *LogNotificationConfig) NotificationChannel {
	return &logChannel{config: cfg}
}

// FormatLogLine renders n the way the log channel stores it.
func FormatLogLine(n Notification) string {
	line := fmt.Sprintf("%s [%s] %s: %s",
		n.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		strings.ToUpper(string(n.Type)), n.Title, n.Message)
	if n.TaskID != 0 {
		line += fmt.Sprintf(" (task %d)", n.TaskID)
	}
	return line
}

// Send appends n to the log, rotating it first when it is too large. The
// file is opened per write so another process can clear it meanwhile.
func (c *logChannel) Send(n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.config.Path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := c.rotate(); err != nil {
		return err
	}

	f, err := os.OpenFile(c.config.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open notification log: %w", err)
	}
	if _, err := f.WriteString(FormatLogLine(n) + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return f.Close()
}

// rotate moves an oversized log to Path+".old".
func (c *logChannel) rotate() error {
	if c.config.MaxSizeMB <= 0 {
		return nil
	}
	info, err := os.Stat(c.config.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() < int64(c.config.MaxSizeMB)<<20 {
		return nil
	}
	if err := os.Rename(c.config.Path, c.config.Path+".old"); err != nil {
		return fmt.Errorf("failed to rotate notification log: %w", err)
	}
	return nil
}

func (c *logChannel) Close() error { return nil }

// ReadLog returns the lines of the log at path. A missing log is empty.
func ReadLog(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

// ClearLog truncates the log at path. A missing log is not an error.
func ClearLog(path string) error {
	err := os.Truncate(path, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
