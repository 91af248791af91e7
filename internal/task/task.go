// Package task holds the task model and the persistent task store.
package task

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"todolite/internal/utils"
)

// TimestampLayout is the layout of CreatedAt and export timestamps
// (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Priority is a task's importance.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the valid priorities from most to least severe.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority validates s. An empty string yields the default (medium).
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", utils.ErrInvalidPriority(s)
	}
}

// Weight orders priorities for sorting: high=0, medium=1, low=2.
// Unknown values weigh as medium.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Recurrence is the repeat interval of a task. The zero value means the
// task does not repeat and is encoded as JSON null.
type Recurrence string

const (
	RecurNone    Recurrence = ""
	RecurDaily   Recurrence = "daily"
	RecurWeekly  Recurrence = "weekly"
	RecurMonthly Recurrence = "monthly"
)

// Recurrences lists the valid repeat intervals.
var Recurrences = []Recurrence{RecurDaily, RecurWeekly, RecurMonthly}

// ParseRecurrence validates s. Empty and "none" yield RecurNone.
func ParseRecurrence(s string) (Recurrence, error) {
	r := Recurrence(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RecurNone, "none":
		return RecurNone, nil
	case RecurDaily, RecurWeekly, RecurMonthly:
		return r, nil
	default:
		return "", utils.ErrInvalidRecurrence(s)
	}
}

// MarshalJSON encodes RecurNone as null.
func (r Recurrence) MarshalJSON() ([]byte, error) {
	if r == RecurNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts null or a string.
func (r *Recurrence) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*r = RecurNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = Recurrence(s)
	return nil
}

// Task is a single todo item. The JSON field names are the persisted
// and exported format.
type Task struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Priority  Priority   `json:"priority"`
	DueDate   Date       `json:"dueDate"`
	Tags      []string   `json:"tags"`
	Recurring Recurrence `json:"recurring"`
	CreatedAt string     `json:"createdAt"`
}

// Clone returns a copy of t that shares no memory with it.
func (t Task) Clone() Task {
	c := t
	c.Tags = append([]string{}, t.Tags...)
	return c
}

// HasTag reports whether t carries tag (exact match).
func (t Task) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}

// Created parses CreatedAt. It returns the zero time for unparseable values.
func (t Task) Created() time.Time {
	ts, err := time.Parse(time.RFC3339Nano, t.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// Draft carries the user-editable fields of a task for Create and Edit.
type Draft struct {
	Text      string
	Priority  Priority
	DueDate   Date
	Tags      []string
	Recurring Recurrence
}

// normalize trims and validates the draft in place.
func (d *Draft) normalize() error {
	d.Text = strings.TrimSpace(d.Text)
	if d.Text == "" {
		return utils.ErrEmptyText()
	}

	p, err := ParsePriority(string(d.Priority))
	if err != nil {
		return err
	}
	d.Priority = p

	r, err := ParseRecurrence(string(d.Recurring))
	if err != nil {
		return err
	}
	d.Recurring = r

	if !d.DueDate.IsZero() && !d.DueDate.Valid() {
		return utils.ErrInvalidDate(string(d.DueDate))
	}

	d.Tags = utils.SplitTags(d.Tags...)
	return nil
}

// DraftOf returns the editable fields of t, for edit forms.
func DraftOf(t Task) Draft {
	return Draft{
		Text:      t.Text,
		Priority:  t.Priority,
		DueDate:   t.DueDate,
		Tags:      append([]string{}, t.Tags...),
		Recurring: t.Recurring,
	}
}

// FormatTimestamp renders ts in TimestampLayout.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}
