// Package reminder notifies about tasks that are due today or overdue.
package reminder

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"todolite/internal/due"
	"todolite/internal/notification"
	"todolite/internal/task"
	"todolite/internal/utils"
)

// DefaultInterval is how often Run re-checks due dates.
const DefaultInterval = 60 * time.Second

// Notification titles.
const (
	TitleDueToday = "TodoLite - Due Today"
	TitleOverdue  = "TodoLite - Overdue!"
)

// Config holds the reminder configuration
type Config struct {
	// Enabled is the user's permission to show notifications.
	Enabled  bool
	Interval time.Duration
}

// Reminder is a task that triggered a notification.
type Reminder struct {
	Task task.Task
	Type notification.NotificationType
}

// Service tracks which tasks were notified during one session. A task is
// notified at most once per Service; a new Service notifies again.
type Service struct {
	config    *Config
	due       *due.Classifier
	notifier  notification.NotificationManager
	sessionID string

	mu       sync.Mutex
	notified map[int64]bool
}

// NewService creates a reminder service. A nil classifier uses the wall clock.
func NewService(cfg *Config, classifier *due.Classifier) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	if classifier == nil {
		classifier = due.New(nil)
	}
	return &Service{
		config:    cfg,
		due:       classifier,
		sessionID: uuid.NewString(),
		notified:  make(map[int64]bool),
	}
}

// SetNotifier sets the notification manager for sending reminders
func (s *Service) SetNotifier(notifier notification.NotificationManager) {
	s.notifier = notifier
}

// SessionID identifies this service's de-duplication session.
func (s *Service) SessionID() string {
	return s.sessionID
}

// Notified reports whether the task has already been notified this session.
func (s *Service) Notified(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notified[id]
}

// CheckReminders sends one notification for every open task that is due
// today or overdue and has not been notified yet. It returns the reminders
// sent. Without permission it does nothing.
func (s *Service) CheckReminders(tasks []task.Task) []Reminder {
	if !s.config.Enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var triggered []Reminder
	for _, t := range tasks {
		if t.Completed || t.DueDate.IsZero() || s.notified[t.ID] {
			continue
		}

		var r Reminder
		switch {
		case s.due.IsDueToday(t.DueDate):
			r = Reminder{Task: t, Type: notification.NotifyDueToday}
		case s.due.IsOverdue(t.DueDate):
			r = Reminder{Task: t, Type: notification.NotifyOverdue}
		default:
			continue
		}

		s.notified[t.ID] = true
		triggered = append(triggered, r)

		if s.notifier != nil {
			if err := s.notifier.Send(s.Notification(r)); err != nil {
				utils.Debugf("failed to send reminder for task %d: %v", t.ID, err)
			}
		}
	}

	if len(triggered) > 0 {
		utils.Debugf("sent %d reminder(s) in session %s", len(triggered), s.sessionID)
	}
	return triggered
}

// Notification builds the desktop notification for r.
func (s *Service) Notification(r Reminder) notification.Notification {
	n := notification.Notification{
		Type:      r.Type,
		Title:     TitleDueToday,
		Message:   r.Task.Text,
		Timestamp: time.Now(),
		TaskID:    r.Task.ID,
		Session:   s.sessionID,
	}
	if r.Type == notification.NotifyOverdue {
		n.Title = TitleOverdue
		n.Message = fmt.Sprintf("%s (was due %s)", r.Task.Text, r.Task.DueDate)
	}
	return n
}

// Run checks the tasks returned by source immediately and then every
// interval until ctx is done. A zero interval uses the configured one, or
// DefaultInterval.
func (s *Service) Run(ctx context.Context, source func() []task.Task, interval time.Duration) {
	if interval <= 0 {
		interval = s.config.Interval
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.CheckReminders(source())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckReminders(source())
		}
	}
}

var intervalPattern = regexp.MustCompile(`^(\d+)\s*(s|sec|secs|second|seconds|m|min|mins|minute|minutes|h|hour|hours)$`)

// ParseInterval parses a check interval such as "60s", "5 minutes" or "1h".
// Go duration strings ("1m30s") are accepted too.
func ParseInterval(interval string) (time.Duration, error) {
	interval = strings.TrimSpace(strings.ToLower(interval))

	if matches := intervalPattern.FindStringSubmatch(interval); matches != nil {
		num, _ := strconv.Atoi(matches[1])
		var unit time.Duration
		switch matches[2] {
		case "s", "sec", "secs", "second", "seconds":
			unit = time.Second
		case "m", "min", "mins", "minute", "minutes":
			unit = time.Minute
		default:
			unit = time.Hour
		}
		if num == 0 {
			return 0, fmt.Errorf("invalid interval: %s", interval)
		}
		return time.Duration(num) * unit, nil
	}

	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid interval format: %s", interval)
	}
	return d, nil
}
