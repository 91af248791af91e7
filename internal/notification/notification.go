// Package notification delivers due-date reminders to the desktop and to a
// notification log.
package notification

import (
	"runtime"
	"time"
)

// NotificationType says why a task is being announced.
type NotificationType string

const (
	NotifyDueToday NotificationType = "due_today"
	NotifyOverdue  NotificationType = "overdue"
	NotifyTest     NotificationType = "test"
)

// Notification is one reminder about one task.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Timestamp time.Time
	// TaskID is the task the reminder is about; zero for test messages.
	TaskID int64
	// Session identifies the reminder session that sent it.
	Session string
}

// NotificationManager fans a notification out to the configured channels.
type NotificationManager interface {
	Send(n Notification) error
	Close() error
	ChannelCount() int
}

// NotificationChannel is one destination for notifications.
type NotificationChannel interface {
	Send(n Notification) error
	Close() error
}

// Config holds the notification configuration. Enabled is the user's
// permission; without it nothing is sent.
type Config struct {
	Enabled         bool
	OSNotification  OSNotificationConfig
	LogNotification LogNotificationConfig
}

// OSNotificationConfig selects which reminders reach the desktop.
type OSNotificationConfig struct {
	Enabled    bool
	OnDueToday bool
	OnOverdue  bool
}

// LogNotificationConfig holds log notification configuration. The log is
// rotated to Path+".old" once it exceeds MaxSizeMB; zero never rotates.
type LogNotificationConfig struct {
	Enabled   bool
	Path      string
	MaxSizeMB int
}

// CommandExecutor runs the desktop notifier program.
type CommandExecutor interface {
	Execute(cmd string, args ...string) error
	// Available reports whether cmd can be run on this machine.
	Available(cmd string) bool
}

// MockCommandExecutor is a CommandExecutor for tests.
type MockCommandExecutor struct {
	ExecuteFunc   func(cmd string, args ...string) error
	AvailableFunc func(cmd string) bool
}

// Execute implements CommandExecutor
func (m *MockCommandExecutor) Execute(cmd string, args ...string) error {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(cmd, args...)
	}
	return nil
}

// Available implements CommandExecutor. Commands are available unless
// AvailableFunc says otherwise.
func (m *MockCommandExecutor) Available(cmd string) bool {
	if m.AvailableFunc != nil {
		return m.AvailableFunc(cmd)
	}
	return true
}

// settings are the knobs shared by the manager and the OS channel.
type settings struct {
	executor CommandExecutor
	platform string
	onSend   func(Notification)
}

func newSettings(opts []Option) settings {
	s := settings{platform: runtime.GOOS}
	for _, opt := range opts {
		opt(&s)
	}
	if s.executor == nil {
		s.executor = execCommand{}
	}
	return s
}

// Option configures NewManager and NewOSNotificationChannel.
type Option func(*settings)

// WithCommandExecutor replaces the process runner used for desktop
// notifications.
func WithCommandExecutor(executor CommandExecutor) Option {
	return func(s *settings) { s.executor = executor }
}

// WithPlatform pretends to run on platform (a runtime.GOOS value).
func WithPlatform(platform string) Option {
	return func(s *settings) { s.platform = platform }
}

// WithSendCallback observes every notification the OS channel accepts.
func WithSendCallback(callback func(Notification)) Option {
	return func(s *settings) { s.onSend = callback }
}
