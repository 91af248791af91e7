package views

import (
	"strings"

	"todolite/internal/task"
	"todolite/internal/utils"
)

// Status selects tasks by completion.
type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Statuses lists the valid status filters.
var Statuses = []Status{StatusAll, StatusActive, StatusCompleted}

// SortKey names a display order.
type SortKey string

const (
	SortCreated  SortKey = "created"
	SortPriority SortKey = "priority"
	SortDueDate  SortKey = "dueDate"
	SortName     SortKey = "name"
)

// SortKeys lists the valid sort keys.
var SortKeys = []SortKey{SortCreated, SortPriority, SortDueDate, SortName}

// ParseStatus validates s. Empty means all.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive:
		return StatusActive, nil
	case StatusCompleted, "done":
		return StatusCompleted, nil
	}
	return "", utils.ErrInvalidChoice("status", s, statusNames())
}

// ParseSortKey validates s. Empty means created. Matching ignores case and
// accepts due/due_date for dueDate.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "created":
		return SortCreated, nil
	case "priority":
		return SortPriority, nil
	case "duedate", "due", "due_date":
		return SortDueDate, nil
	case "name", "text":
		return SortName, nil
	}
	return "", utils.ErrInvalidChoice("sort", s, sortNames())
}

// ParsePriorityFilter validates a priority filter. Empty and "all" mean
// any priority.
func ParsePriorityFilter(s string) (task.Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "all" {
		return "", nil
	}
	return task.ParsePriority(s)
}

func statusNames() []string {
	names := make([]string, len(Statuses))
	for i, st := range Statuses {
		names[i] = string(st)
	}
	return names
}

func sortNames() []string {
	names := make([]string, len(SortKeys))
	for i, k := range SortKeys {
		names[i] = string(k)
	}
	return names
}

// Query selects and orders tasks for display. Zero fields mean "no filter"
// and the default order (newest first).
type Query struct {
	Search   string
	Priority task.Priority
	Status   Status
	Tag      string
	Sort     SortKey
	// Locale is a BCP 47 tag used for name ordering.
	Locale string
}

// View is a named, saved query loaded from YAML.
type View struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Search      string   `yaml:"search,omitempty"`
	Priority    string   `yaml:"priority,omitempty"`
	Status      string   `yaml:"status,omitempty"`
	Tag         string   `yaml:"tag,omitempty"`
	Sort        string   `yaml:"sort,omitempty"`
	Fields      []string `yaml:"fields,omitempty"`
}

// Query converts the saved view into a Query.
func (v *View) Query() (Query, error) {
	status, err := ParseStatus(v.Status)
	if err != nil {
		return Query{}, err
	}
	sortKey, err := ParseSortKey(v.Sort)
	if err != nil {
		return Query{}, err
	}
	priority, err := ParsePriorityFilter(v.Priority)
	if err != nil {
		return Query{}, err
	}
	return Query{
		Search:   v.Search,
		Priority: priority,
		Status:   status,
		Tag:      v.Tag,
		Sort:     sortKey,
	}, nil
}

// AvailableFields are the columns a view may list.
var AvailableFields = []string{
	"id",
	"status",
	"text",
	"priority",
	"due",
	"tags",
	"repeat",
	"created",
}

// DefaultFields is the column set used when a view lists none.
var DefaultFields = []string{"id", "status", "priority", "text", "due", "tags", "repeat"}

// builtIns are the views available without any files on disk. A view
// without a sort uses ui.default_sort.
var builtIns = []View{
	{Name: "default", Description: "All tasks", Status: "all"},
	{Name: "active", Description: "Open tasks", Status: "active"},
	{Name: "completed", Description: "Completed tasks", Status: "completed"},
	{Name: "today", Description: "Open tasks, earliest due first", Status: "active", Sort: "dueDate"},
}

// BuiltIn returns a copy of the built-in view called name.
func BuiltIn(name string) (*View, bool) {
	for _, v := range builtIns {
		if v.Name == name {
			c := v
			return &c, true
		}
	}
	return nil, false
}

// DefaultView returns the built-in default view.
func DefaultView() *View {
	v, _ := BuiltIn("default")
	return v
}
