package task

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"todolite/internal/utils"
)

// SnapshotVersion is written into every export.
const SnapshotVersion = "2.0"

// Snapshot is the export file format.
type Snapshot struct {
	Version    string `json:"version"`
	ExportedAt string `json:"exportedAt"`
	Tasks      []Task `json:"tasks"`
}

// Export returns a copy of the collection wrapped with version and time.
func (s *Store) Export() Snapshot {
	return Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: FormatTimestamp(s.now()),
		Tasks:      s.Tasks(),
	}
}

// MarshalSnapshot encodes snap the way export files are written.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	if snap.Tasks == nil {
		snap.Tasks = []Task{}
	}
	return json.MarshalIndent(snap, "", "  ")
}

// ExportFileName is the default export file name for the local date of now.
func ExportFileName(now time.Time) string {
	return fmt.Sprintf("todolite-backup-%s.json", Today(now))
}

// importEntry is a task as found in an import file, before defaults.
type importEntry struct {
	ID        json.RawMessage `json:"id"`
	Text      string          `json:"text"`
	Completed bool            `json:"completed"`
	Priority  string          `json:"priority"`
	DueDate   Date            `json:"dueDate"`
	Tags      []string        `json:"tags"`
	Recurring Recurrence      `json:"recurring"`
	CreatedAt string          `json:"createdAt"`
}

// Import merges the tasks in data into the store and returns how many were
// added. data is either a JSON array of tasks or an object whose "tasks"
// field is one. Tasks whose id is already present are skipped. Any bad
// entry aborts the whole import and leaves the store unchanged.
func (s *Store) Import(ctx context.Context, data []byte) (int, error) {
	raw, err := importEntries(data)
	if err != nil {
		return 0, err
	}

	now := s.now()
	incoming := make([]Task, 0, len(raw))
	for i, r := range raw {
		t, err := decodeEntry(i, r, now)
		if err != nil {
			return 0, err
		}
		incoming = append(incoming, t)
	}

	added := 0
	err = s.mutate(ctx, func(tasks []Task) ([]Task, error) {
		seen := make(map[int64]bool, len(tasks)+len(incoming))
		for _, t := range tasks {
			seen[t.ID] = true
		}
		for _, t := range incoming {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			tasks = append(tasks, t)
			added++
		}
		return tasks, nil
	})
	if err != nil {
		return 0, err
	}
	utils.Debugf("imported %d of %d tasks", added, len(incoming))
	return added, nil
}

// importEntries splits an import file into its raw task entries.
func importEntries(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, utils.ErrInvalidImportFormat("file is empty")
	}

	var entries []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, utils.ErrInvalidImportFormat(err.Error())
		}
	case '{':
		var wrapped struct {
			Tasks json.RawMessage `json:"tasks"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, utils.ErrInvalidImportFormat(err.Error())
		}
		tasks := bytes.TrimSpace(wrapped.Tasks)
		if len(tasks) == 0 || tasks[0] != '[' {
			return nil, utils.ErrInvalidImportFormat(`"tasks" is not an array`)
		}
		if err := json.Unmarshal(tasks, &entries); err != nil {
			return nil, utils.ErrInvalidImportFormat(err.Error())
		}
	default:
		return nil, utils.ErrInvalidImportFormat("expected a task array or an object with a tasks array")
	}
	return entries, nil
}

// decodeEntry validates one entry and fills in defaults.
func decodeEntry(index int, raw json.RawMessage, now time.Time) (Task, error) {
	var e importEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Task{}, utils.ErrInvalidImportEntry(index, err.Error())
	}

	id, ok := parseImportID(e.ID)
	if !ok {
		return Task{}, utils.ErrInvalidImportEntry(index, "has no usable id")
	}
	text := strings.TrimSpace(e.Text)
	if text == "" {
		return Task{}, utils.ErrInvalidImportEntry(index, "has no text")
	}

	priority, err := ParsePriority(e.Priority)
	if err != nil {
		utils.Debugf("import entry %d: %v, using medium", index, err)
		priority = PriorityMedium
	}
	recurring, err := ParseRecurrence(string(e.Recurring))
	if err != nil {
		utils.Debugf("import entry %d: %v, not repeating", index, err)
		recurring = RecurNone
	}
	due := e.DueDate
	if !due.IsZero() && !due.Valid() {
		utils.Debugf("import entry %d: dropping invalid due date %q", index, due)
		due = ""
	}
	createdAt := e.CreatedAt
	if createdAt == "" {
		createdAt = FormatTimestamp(now)
	}

	return Task{
		ID:        id,
		Text:      text,
		Completed: e.Completed,
		Priority:  priority,
		DueDate:   due,
		Tags:      utils.SplitTags(e.Tags...),
		Recurring: recurring,
		CreatedAt: createdAt,
	}, nil
}

// parseImportID accepts a JSON integer or a string holding one. Zero is
// not a usable id.
func parseImportID(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
	} else {
		s = string(raw)
	}

	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
