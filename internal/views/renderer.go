package views

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"todolite/internal/due"
	"todolite/internal/task"
)

// Empty-list messages.
const (
	EmptyStoreMessage    = "No tasks yet. Add one above!"
	EmptyFilteredMessage = "No tasks match your filters."
)

// Renderer writes a projected task list as plain text lines.
type Renderer struct {
	fields []string
	due    *due.Classifier
	writer io.Writer
}

// NewRenderer creates a renderer for the view's fields. A nil view or one
// without fields uses DefaultFields.
func NewRenderer(view *View, classifier *due.Classifier, writer io.Writer) *Renderer {
	fields := DefaultFields
	if view != nil && len(view.Fields) > 0 {
		fields = view.Fields
	}
	return &Renderer{fields: fields, due: classifier, writer: writer}
}

// Render writes one line per task. total is the size of the unfiltered
// collection and picks the empty-state message.
func (r *Renderer) Render(tasks []task.Task, total int) {
	if len(tasks) == 0 {
		if total == 0 {
			_, _ = fmt.Fprintln(r.writer, EmptyStoreMessage)
		} else {
			_, _ = fmt.Fprintln(r.writer, EmptyFilteredMessage)
		}
		return
	}

	for _, t := range tasks {
		var parts []string
		for _, field := range r.fields {
			if v := r.formatField(t, field); v != "" {
				parts = append(parts, v)
			}
		}
		_, _ = fmt.Fprintln(r.writer, strings.Join(parts, " "))
	}
}

func (r *Renderer) formatField(t task.Task, field string) string {
	switch field {
	case "id":
		return fmt.Sprintf("%-13s", strconv.FormatInt(t.ID, 10))
	case "status":
		if t.Completed {
			return "[x]"
		}
		return "[ ]"
	case "text":
		return t.Text
	case "priority":
		return fmt.Sprintf("%-8s", "("+string(t.Priority)+")")
	case "due":
		label := r.due.FormatRelative(t.DueDate)
		if label == "" {
			return ""
		}
		if !t.Completed && r.due.IsOverdue(t.DueDate) {
			return "!" + label
		}
		return "· " + label
	case "tags":
		if len(t.Tags) == 0 {
			return ""
		}
		return "#" + strings.Join(t.Tags, " #")
	case "repeat":
		if t.Recurring == task.RecurNone {
			return ""
		}
		return RepeatLabel(t.Recurring)
	case "created":
		if c := t.Created(); !c.IsZero() {
			return c.Local().Format("2006-01-02 15:04")
		}
	}
	return ""
}

// RepeatLabel renders a recurrence as "Repeats daily".
func RepeatLabel(r task.Recurrence) string {
	if r == task.RecurNone {
		return ""
	}
	return "Repeats " + string(r)
}
