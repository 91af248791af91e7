// Package due classifies due dates relative to the local calendar day.
package due

import (
	"fmt"
	"time"

	"todolite/internal/task"
)

// Classifier answers due-date questions against an injected clock.
type Classifier struct {
	now func() time.Time
}

// New returns a Classifier. A nil now uses time.Now.
func New(now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{now: now}
}

// Today returns the current local date.
func (c *Classifier) Today() task.Date {
	return task.Today(c.now())
}

// IsOverdue reports whether d is before today. The zero Date is never overdue.
func (c *Classifier) IsOverdue(d task.Date) bool {
	if d.IsZero() {
		return false
	}
	return d.Before(c.Today())
}

// IsDueToday reports whether d is today.
func (c *Classifier) IsDueToday(d task.Date) bool {
	if d.IsZero() {
		return false
	}
	return d == c.Today()
}

// DaysUntil returns the days from today to d, negative when d is past.
func (c *Classifier) DaysUntil(d task.Date) int {
	return c.Today().DaysUntil(d)
}

// FormatRelative renders d as a short human label:
// "Due today", "Due tomorrow", "Due in 5 days", "Overdue by 2 days" or,
// beyond a week, "Due Mar 14". The zero Date renders as "".
func (c *Classifier) FormatRelative(d task.Date) string {
	if d.IsZero() || !d.Valid() {
		return ""
	}

	days := c.DaysUntil(d)
	switch {
	case days == 0:
		return "Due today"
	case days == 1:
		return "Due tomorrow"
	case days < 0:
		n := -days
		if n == 1 {
			return "Overdue by 1 day"
		}
		return fmt.Sprintf("Overdue by %d days", n)
	case days <= 7:
		return fmt.Sprintf("Due in %d days", days)
	default:
		return "Due " + d.Time().Format("Jan 2")
	}
}
