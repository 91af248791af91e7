package views

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"todolite/internal/task"
)

// Project applies q to tasks: search, priority, status and tag filters in
// that order, then a stable sort. The input slice is not modified.
func Project(tasks []task.Task, q Query) []task.Task {
	result := make([]task.Task, 0, len(tasks))
	search := strings.ToLower(strings.TrimSpace(q.Search))

	for _, t := range tasks {
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		if q.Priority != "" && t.Priority != q.Priority {
			continue
		}
		if !matchesStatus(t, q.Status) {
			continue
		}
		if q.Tag != "" && !t.HasTag(q.Tag) {
			continue
		}
		result = append(result, t.Clone())
	}

	SortTasks(result, q.Sort, q.Locale)
	return result
}

// matchesSearch reports whether the lowercased needle occurs in the text or
// any tag.
func matchesSearch(t task.Task, needle string) bool {
	if strings.Contains(strings.ToLower(t.Text), needle) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

func matchesStatus(t task.Task, s Status) bool {
	switch s {
	case StatusActive:
		return !t.Completed
	case StatusCompleted:
		return t.Completed
	default:
		return true
	}
}

// SortTasks stably sorts tasks in place by key.
func SortTasks(tasks []task.Task, key SortKey, locale string) {
	var less func(a, b task.Task) bool

	switch key {
	case SortPriority:
		less = func(a, b task.Task) bool {
			return a.Priority.Weight() < b.Priority.Weight()
		}
	case SortDueDate:
		less = func(a, b task.Task) bool {
			switch {
			case a.DueDate.IsZero():
				return false
			case b.DueDate.IsZero():
				return true
			default:
				return a.DueDate < b.DueDate
			}
		}
	case SortName:
		col := newCollator(locale)
		less = func(a, b task.Task) bool {
			return col.CompareString(a.Text, b.Text) < 0
		}
	default:
		less = func(a, b task.Task) bool {
			return a.ID > b.ID
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return less(tasks[i], tasks[j])
	})
}

// newCollator returns a collator for locale, falling back to the root
// collation order for empty or unknown tags.
func newCollator(locale string) *collate.Collator {
	tag := language.Und
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			tag = parsed
		}
	}
	return collate.New(tag, collate.IgnoreCase)
}
