// Package prompt handles interactive prompts with no-prompt mode support.
// It provides filter-then-pick task selection, an interactive add mode with
// field validation, and yes/no confirmation.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"todolite/internal/task"
	"todolite/internal/utils"
)

// Sentinel errors for prompt operations.
var (
	ErrSelectionCancelled = errors.New("selection cancelled")
	ErrNoPromptMode       = errors.New("interactive prompts disabled (--no-prompt / -y)")
	ErrNoTasks            = errors.New("no tasks available")
	ErrNoMatches          = errors.New("no tasks match the filter")
)

// TaskSelector lets the user pick a task by filtering on text or tags.
type TaskSelector struct {
	Tasks    []task.Task
	Prompt   string
	Reader   io.Reader
	Writer   io.Writer
	NoPrompt bool
}

// Run executes the task selection prompt.
// If NoPrompt is true, returns ErrNoPromptMode.
// If there is exactly one task, auto-selects it.
// Otherwise, prompts the user to filter and select a task.
func (s *TaskSelector) Run() (*task.Task, error) {
	if s.NoPrompt {
		return nil, ErrNoPromptMode
	}

	if len(s.Tasks) == 0 {
		return nil, ErrNoTasks
	}

	if len(s.Tasks) == 1 {
		return &s.Tasks[0], nil
	}

	writer := s.Writer
	if writer == nil {
		writer = io.Discard
	}

	scanner := bufio.NewScanner(s.Reader)

	_, _ = fmt.Fprintf(writer, "%s\nFilter (or press Enter to show all): ", s.Prompt)
	if !scanner.Scan() {
		return nil, ErrSelectionCancelled
	}
	filter := strings.ToLower(strings.TrimSpace(scanner.Text()))

	var filtered []task.Task
	for _, t := range s.Tasks {
		if filter == "" || matches(t, filter) {
			filtered = append(filtered, t)
		}
	}

	if len(filtered) == 0 {
		return nil, ErrNoMatches
	}

	if len(filtered) == 1 {
		_, _ = fmt.Fprintf(writer, "Auto-selected: %s\n", filtered[0].Text)
		return &filtered[0], nil
	}

	for i, t := range filtered {
		_, _ = fmt.Fprintf(writer, "  %d) %s\n", i+1, formatTaskLine(t))
	}

	_, _ = fmt.Fprintf(writer, "Select (0 to cancel): ")
	if !scanner.Scan() {
		return nil, ErrSelectionCancelled
	}

	input := strings.TrimSpace(scanner.Text())
	num, err := strconv.Atoi(input)
	if err != nil {
		return nil, fmt.Errorf("invalid selection: %s", input)
	}

	if num == 0 {
		return nil, ErrSelectionCancelled
	}

	if num < 1 || num > len(filtered) {
		return nil, fmt.Errorf("selection out of range: %d", num)
	}

	return &filtered[num-1], nil
}

func matches(t task.Task, needle string) bool {
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

// formatTaskLine shows text followed by status, priority, due date,
// recurrence and tags.
func formatTaskLine(t task.Task) string {
	status := "open"
	if t.Completed {
		status = "done"
	}
	meta := []string{status, string(t.Priority)}

	if !t.DueDate.IsZero() {
		meta = append(meta, "due: "+t.DueDate.String())
	}
	if t.Recurring != task.RecurNone {
		meta = append(meta, "repeats: "+string(t.Recurring))
	}
	if len(t.Tags) > 0 {
		meta = append(meta, "tags: "+strings.Join(t.Tags, ","))
	}

	return fmt.Sprintf("%s [%s]", t.Text, strings.Join(meta, ", "))
}

// FilterTasksByAction returns the tasks offered for an action. "complete"
// offers open tasks and "reopen" completed ones; other actions offer
// everything. showAll disables the filter.
func FilterTasksByAction(tasks []task.Task, action string, showAll bool) []task.Task {
	result := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		switch {
		case showAll:
		case action == "complete" && t.Completed:
			continue
		case action == "reopen" && !t.Completed:
			continue
		}
		result = append(result, t)
	}
	return result
}

// AddFields holds the field values collected during interactive add mode.
type AddFields struct {
	Text       string
	Priority   task.Priority
	DueDate    string
	Tags       []string
	Recurrence task.Recurrence
}

// InteractiveAdder provides sequential field prompts with validation
// for adding a task when no text is provided.
type InteractiveAdder struct {
	Reader   io.Reader
	Writer   io.Writer
	NoPrompt bool
	// Now resolves relative due dates. Nil uses time.Now.
	Now func() time.Time
}

// Run prompts for text (required), priority, due date, tags and
// recurrence. Invalid input is asked for again.
func (a *InteractiveAdder) Run() (*AddFields, error) {
	if a.NoPrompt {
		return nil, ErrNoPromptMode
	}

	writer := a.Writer
	if writer == nil {
		writer = io.Discard
	}
	now := a.Now
	if now == nil {
		now = time.Now
	}

	scanner := bufio.NewScanner(a.Reader)
	fields := &AddFields{Priority: task.PriorityMedium}

	for {
		_, _ = fmt.Fprint(writer, "Task (required): ")
		if !scanner.Scan() {
			return nil, errors.New("no input for task text")
		}
		fields.Text = strings.TrimSpace(scanner.Text())
		if fields.Text != "" {
			break
		}
		_, _ = fmt.Fprintln(writer, "Task text cannot be empty.")
	}

	for {
		_, _ = fmt.Fprint(writer, "Priority (high/medium/low, default medium): ")
		if !scanner.Scan() {
			break
		}
		p, err := task.ParsePriority(scanner.Text())
		if err != nil {
			_, _ = fmt.Fprintln(writer, "Invalid priority: must be high, medium or low")
			continue
		}
		fields.Priority = p
		break
	}

	for {
		_, _ = fmt.Fprint(writer, "Due date (YYYY-MM-DD, today, tomorrow, +Nd, optional): ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		d, err := utils.ParseDueDate(input, now())
		if err != nil {
			_, _ = fmt.Fprintf(writer, "Invalid date: %s. Use YYYY-MM-DD, today, tomorrow, +Nd, +Nw, +Nm\n", input)
			continue
		}
		fields.DueDate = d
		break
	}

	_, _ = fmt.Fprint(writer, "Tags (comma-separated, optional): ")
	if scanner.Scan() {
		fields.Tags = utils.SplitTags(scanner.Text())
	}

	for {
		_, _ = fmt.Fprint(writer, "Repeat (daily, weekly, monthly, optional): ")
		if !scanner.Scan() {
			break
		}
		r, err := task.ParseRecurrence(scanner.Text())
		if err != nil {
			_, _ = fmt.Fprintln(writer, "Invalid repeat: must be daily, weekly or monthly")
			continue
		}
		fields.Recurrence = r
		break
	}

	return fields, nil
}

// Draft converts the collected fields into a task draft.
func (f *AddFields) Draft() task.Draft {
	return task.Draft{
		Text:      f.Text,
		Priority:  f.Priority,
		DueDate:   task.Date(f.DueDate),
		Tags:      f.Tags,
		Recurring: f.Recurrence,
	}
}

// Confirm asks a yes/no question. Only "y" and "yes" confirm; end of
// input declines.
func Confirm(reader io.Reader, writer io.Writer, question string) bool {
	if writer == nil {
		writer = io.Discard
	}
	_, _ = fmt.Fprintf(writer, "%s [y/N]: ", question)

	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true
	}
	return false
}
