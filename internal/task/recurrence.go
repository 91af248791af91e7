package task

import "time"

// NextDueDate returns the due date of the occurrence after one due on due.
// A task without a due date repeats from the local date of now. Unknown
// intervals yield the zero Date.
func NextDueDate(due Date, r Recurrence, now time.Time) Date {
	base := due
	if base.IsZero() || !base.Valid() {
		base = Today(now)
	}

	switch r {
	case RecurDaily:
		return base.AddDate(0, 0, 1)
	case RecurWeekly:
		return base.AddDate(0, 0, 7)
	case RecurMonthly:
		return base.AddDate(0, 1, 0)
	default:
		return ""
	}
}

// NextOccurrence builds the successor of a completed recurring task. The
// successor is a new, open task with its own id and tag slice; src is not
// modified.
func NextOccurrence(src Task, id int64, now time.Time) Task {
	return Task{
		ID:        id,
		Text:      src.Text,
		Completed: false,
		Priority:  src.Priority,
		DueDate:   NextDueDate(src.DueDate, src.Recurring, now),
		Tags:      append([]string{}, src.Tags...),
		Recurring: src.Recurring,
		CreatedAt: FormatTimestamp(now),
	}
}
