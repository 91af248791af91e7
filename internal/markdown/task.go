// Package markdown reads and writes task lists as markdown checklists.
//
// One task per line:
//
//	- [ ] Pay rent !high @2024-02-01 ~monthly #bills #home
//
// Priority, due date, repeat interval and tags are optional markers after
// the text.
package markdown

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"todolite/internal/task"
	"todolite/internal/utils"
)

// Item is one parsed checklist line.
type Item struct {
	Draft     task.Draft
	Completed bool
	Line      int
}

var (
	itemPattern     = regexp.MustCompile(`^\s*[-*]\s+\[(.)\]\s+(.*)$`)
	priorityPattern = regexp.MustCompile(`(?i)^!(high|medium|low)$`)
	dueDatePattern  = regexp.MustCompile(`^@(\d{4}-\d{2}-\d{2})$`)
	repeatPattern   = regexp.MustCompile(`(?i)^~(daily|weekly|monthly)$`)
	tagPattern      = regexp.MustCompile(`^#([^#]+)$`)
	// escapedPattern matches words that would read as markers, with any
	// escaping backslashes already in front of them.
	escapedPattern = regexp.MustCompile(`^\\*[!@~#]`)
)

// FileName returns the default checklist file name for now.
func FileName(now time.Time) string {
	return fmt.Sprintf("todolite-tasks-%s.md", now.Format("2006-01-02"))
}

// ParseStatusChar reports whether a checkbox character marks a done task.
func ParseStatusChar(char string) bool {
	return strings.EqualFold(char, "x")
}

// FormatStatusChar returns the checkbox character for a task.
func FormatStatusChar(completed bool) string {
	if completed {
		return "x"
	}
	return " "
}

// ParseTaskText splits the trailing markers off a checklist line's text.
// Markers are read from the end of the line and stop at the first word
// that is not one, so a marker-like word inside the text stays text. A
// backslash in front of such a word is dropped.
func ParseTaskText(text string) task.Draft {
	d := task.Draft{}
	words := strings.Fields(text)

	var tags []string
	end := len(words)
markers:
	for ; end > 0; end-- {
		w := words[end-1]
		switch {
		case priorityPattern.MatchString(w) && d.Priority == "":
			d.Priority = task.Priority(strings.ToLower(w[1:]))
		case dueDatePattern.MatchString(w) && d.DueDate.IsZero():
			d.DueDate = task.Date(w[1:])
		case repeatPattern.MatchString(w) && d.Recurring == task.RecurNone:
			d.Recurring = task.Recurrence(strings.ToLower(w[1:]))
		case tagPattern.MatchString(w):
			tags = append([]string{w[1:]}, tags...)
		default:
			break markers
		}
	}
	if len(tags) > 0 {
		d.Tags = utils.SplitTags(tags...)
	}

	body := words[:end]
	for i, w := range body {
		if strings.HasPrefix(w, `\`) && escapedPattern.MatchString(w) {
			body[i] = w[1:]
		}
	}
	d.Text = strings.Join(body, " ")
	return d
}

// FormatTaskText formats a task as checklist text with markers. Words of
// the text that look like markers are escaped with a backslash.
func FormatTaskText(t task.Task) string {
	var parts []string
	for _, w := range strings.Fields(t.Text) {
		if escapedPattern.MatchString(w) {
			w = `\` + w
		}
		parts = append(parts, w)
	}
	if t.Priority != "" && t.Priority != task.PriorityMedium {
		parts = append(parts, "!"+string(t.Priority))
	}
	if !t.DueDate.IsZero() {
		parts = append(parts, "@"+string(t.DueDate))
	}
	if t.Recurring != task.RecurNone {
		parts = append(parts, "~"+string(t.Recurring))
	}
	for _, tag := range t.Tags {
		parts = append(parts, "#"+tag)
	}
	return strings.Join(parts, " ")
}

// Write writes tasks as a checklist under a level-one heading.
func Write(w io.Writer, title string, tasks []task.Task) error {
	var sb strings.Builder
	if title != "" {
		sb.WriteString("# " + title + "\n\n")
	}
	for _, t := range tasks {
		sb.WriteString("- [")
		sb.WriteString(FormatStatusChar(t.Completed))
		sb.WriteString("] ")
		sb.WriteString(FormatTaskText(t))
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Parse reads checklist items from data. Lines that are not checklist
// items are ignored; an item without text is an error.
func Parse(data []byte) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		m := itemPattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		d := ParseTaskText(m[2])
		if d.Text == "" {
			return nil, utils.ErrInvalidImportFormat(fmt.Sprintf("line %d has no task text", line))
		}
		if !d.DueDate.IsZero() && !d.DueDate.Valid() {
			return nil, utils.ErrInvalidImportFormat(fmt.Sprintf("line %d has an invalid due date %s", line, d.DueDate))
		}
		items = append(items, Item{Draft: d, Completed: ParseStatusChar(m[1]), Line: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// IsChecklist reports whether data looks like a markdown checklist rather
// than JSON.
func IsChecklist(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == '[' || trimmed[0] == '{' {
		return false
	}
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	for scanner.Scan() {
		if itemPattern.MatchString(scanner.Text()) {
			return true
		}
	}
	return false
}
