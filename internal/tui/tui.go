// Package tui provides a terminal user interface for task management.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todolite/internal/due"
	"todolite/internal/reminder"
	"todolite/internal/task"
	"todolite/internal/utils"
	"todolite/internal/views"
)

// Mode indicates the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAdd
	ModeEdit
	ModeFilter
	ModeHelp
	ModeConfirmDelete
	ModeConfirmClear
)

// Options configures a Model.
type Options struct {
	// Query is the initial filter and sort.
	Query views.Query
	// Classifier labels due dates. Nil uses the wall clock.
	Classifier *due.Classifier
	// Reminders, when set, is checked on start and every ReminderInterval.
	Reminders        *reminder.Service
	ReminderInterval time.Duration
}

// Model represents the TUI state
type Model struct {
	store            *task.Store
	ctx              context.Context
	due              *due.Classifier
	reminders        *reminder.Service
	reminderInterval time.Duration

	// Projection
	query  views.Query
	tasks  []task.Task
	cursor int
	offset int

	// Mode and input
	mode      Mode
	form      *taskForm
	editingID int64     // task shown in the edit form, 0 when none
	deleting  task.Task // task awaiting delete confirmation
	search    textinput.Model

	message string
	isError bool

	// UI dimensions
	width  int
	height int

	dark   bool
	styles styles
}

// Message types
type tasksChangedMsg struct {
	message string
}

type errMsg struct {
	err error
}

type themeSavedMsg struct {
	dark bool
}

type reminderTickMsg time.Time

// StoreChangedMsg reports that another process rewrote the task list. The
// model reloads the store and re-projects the list.
type StoreChangedMsg struct{}

type remindersCheckedMsg struct {
	count int
}

// New creates a new TUI model over store.
func New(store *task.Store, opts Options) *Model {
	search := textinput.New()
	search.Placeholder = "Search text or tags..."
	search.CharLimit = 256

	classifier := opts.Classifier
	if classifier == nil {
		classifier = due.New(store.Now)
	}
	interval := opts.ReminderInterval
	if interval <= 0 {
		interval = reminder.DefaultInterval
	}

	m := &Model{
		store:            store,
		ctx:              context.Background(),
		due:              classifier,
		reminders:        opts.Reminders,
		reminderInterval: interval,
		query:            opts.Query,
		search:           search,
		dark:             store.DarkMode(),
	}
	m.styles = newStyles(m.dark)
	m.refresh()
	return m
}

// Init starts the reminder loop.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.checkReminders(), m.scheduleReminderTick())
}

// Tasks returns the tasks currently listed.
func (m *Model) Tasks() []task.Task {
	return m.tasks
}

// Query returns the active filter and sort.
func (m *Model) Query() views.Query {
	return m.query
}

// Mode returns the current input mode.
func (m *Model) Mode() Mode {
	return m.mode
}

// EditingID returns the id of the task open in the edit form, or 0.
func (m *Model) EditingID() int64 {
	return m.editingID
}

// DarkMode reports the theme on screen.
func (m *Model) DarkMode() bool {
	return m.dark
}

// Message returns the last status message.
func (m *Model) Message() string {
	return m.message
}

// refresh re-projects the store and keeps the cursor in range.
func (m *Model) refresh() {
	m.tasks = views.Project(m.store.Tasks(), m.query)
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) selected() (task.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return task.Task{}, false
	}
	return m.tasks[m.cursor], true
}

// run executes a store mutation off the update loop.
func (m *Model) run(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		message, err := fn()
		if err != nil {
			return errMsg{err}
		}
		return tasksChangedMsg{message}
	}
}

func (m *Model) checkReminders() tea.Cmd {
	if m.reminders == nil {
		return nil
	}
	return func() tea.Msg {
		return remindersCheckedMsg{count: len(m.reminders.CheckReminders(m.store.Tasks()))}
	}
}

func (m *Model) scheduleReminderTick() tea.Cmd {
	if m.reminders == nil {
		return nil
	}
	return tea.Tick(m.reminderInterval, func(t time.Time) tea.Msg {
		return reminderTickMsg(t)
	})
}

func (m *Model) setTheme(dark bool) {
	if dark != m.dark {
		m.dark = dark
		m.styles = newStyles(dark)
	}
}

func (m *Model) setMessage(msg string) {
	m.message = msg
	m.isError = false
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tasksChangedMsg:
		m.refresh()
		m.setMessage(msg.message)
		return m, m.checkReminders()

	case errMsg:
		utils.Debugf("tui: %v", msg.err)
		m.message = msg.err.Error()
		m.isError = true
		return m, nil

	case StoreChangedMsg:
		m.store.Reload(m.ctx)
		m.setTheme(m.store.DarkMode())
		m.refresh()
		return m, nil

	case themeSavedMsg:
		m.setTheme(msg.dark)
		if msg.dark {
			m.setMessage("Dark mode on")
		} else {
			m.setMessage("Dark mode off")
		}
		return m, nil

	case reminderTickMsg:
		return m, tea.Batch(m.checkReminders(), m.scheduleReminderTick())

	case remindersCheckedMsg:
		if msg.count > 0 {
			m.setMessage(fmt.Sprintf("Sent %d reminder(s)", msg.count))
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAdd, ModeEdit:
			return m.handleFormMode(msg)
		case ModeFilter:
			return m.handleFilterMode(msg)
		case ModeHelp:
			return m.handleHelpMode(msg)
		case ModeConfirmDelete, ModeConfirmClear:
			return m.handleConfirmMode(msg)
		}
		return m.handleNormalMode(msg)
	}

	switch m.mode {
	case ModeAdd, ModeEdit:
		return m, m.form.update(msg)
	case ModeFilter:
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
		return m, nil

	case "a":
		m.mode = ModeAdd
		m.editingID = 0
		m.form = newTaskForm(task.Draft{})
		return m, textinput.Blink

	case "e":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = ModeEdit
		m.editingID = t.ID
		m.form = newTaskForm(task.DraftOf(t))
		return m, textinput.Blink

	case " ", "x":
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.run(func() (string, error) {
			updated, spawned, err := m.store.ToggleComplete(m.ctx, t.ID)
			if err != nil {
				return "", err
			}
			switch {
			case spawned != nil:
				return fmt.Sprintf("Completed %q, next due %s", updated.Text, spawned.DueDate), nil
			case updated.Completed:
				return fmt.Sprintf("Completed %q", updated.Text), nil
			default:
				return fmt.Sprintf("Reopened %q", updated.Text), nil
			}
		})

	case "d":
		if t, ok := m.selected(); ok {
			m.deleting = t
			m.mode = ModeConfirmDelete
		}
		return m, nil

	case "C":
		if m.store.Stats(m.due.Today()).Completed > 0 {
			m.mode = ModeConfirmClear
		}
		return m, nil

	case "/":
		m.mode = ModeFilter
		m.search.SetValue(m.query.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()

	case "esc":
		m.query = views.Query{Sort: m.query.Sort, Locale: m.query.Locale}
		m.refresh()
		m.setMessage("Filters cleared")
		return m, nil

	case "p":
		m.query.Priority = nextPriority(m.query.Priority)
		m.refresh()
		return m, nil

	case "s":
		m.query.Status = nextStatus(m.query.Status)
		m.refresh()
		return m, nil

	case "t":
		m.query.Tag = nextTag(m.store.Tags(), m.query.Tag)
		m.refresh()
		return m, nil

	case "o":
		m.query.Sort = nextSort(m.query.Sort)
		m.refresh()
		return m, nil

	case "D":
		dark := !m.dark
		return m, func() tea.Msg {
			if err := m.store.SetDarkMode(m.ctx, dark); err != nil {
				return errMsg{err}
			}
			return themeSavedMsg{dark}
		}

	case "?":
		m.mode = ModeHelp
		return m, nil
	}
	return m, nil
}

func (m *Model) handleFormMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeForm()
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.form.move(1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.form.move(-1)
	case tea.KeyEnter:
		return m, m.submitForm()
	}
	return m, m.form.update(msg)
}

// submitForm saves the form synchronously so validation errors stay in
// the open form.
func (m *Model) submitForm() tea.Cmd {
	d, err := m.form.draft(m.store)
	if err != nil {
		m.form.err = err
		return nil
	}

	var message string
	if m.mode == ModeEdit {
		t, err := m.store.Edit(m.ctx, m.editingID, d)
		if err != nil {
			m.form.err = err
			return nil
		}
		message = fmt.Sprintf("Updated %q", t.Text)
	} else {
		t, err := m.store.Create(m.ctx, d)
		if err != nil {
			m.form.err = err
			return nil
		}
		message = fmt.Sprintf("Added %q", t.Text)
	}

	m.closeForm()
	return func() tea.Msg { return tasksChangedMsg{message} }
}

func (m *Model) closeForm() {
	m.mode = ModeNormal
	m.form = nil
	m.editingID = 0
}

func (m *Model) handleFilterMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.search.Blur()
		m.mode = ModeNormal
		return m, nil
	case tea.KeyEsc:
		m.search.Blur()
		m.search.Reset()
		m.query.Search = ""
		m.refresh()
		m.mode = ModeNormal
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.query.Search = m.search.Value()
	m.refresh()
	return m, cmd
}

func (m *Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "q", "?":
		m.mode = ModeNormal
	}
	return m, nil
}

func (m *Model) handleConfirmMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	mode := m.mode
	switch msg.String() {
	case "y", "Y":
		m.mode = ModeNormal
		if mode == ModeConfirmClear {
			return m, m.run(func() (string, error) {
				n, err := m.store.ClearCompleted(m.ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Cleared %d completed task(s)", n), nil
			})
		}
		t := m.deleting
		m.deleting = task.Task{}
		if t.ID == 0 {
			return m, nil
		}
		return m, m.run(func() (string, error) {
			if err := m.store.Delete(m.ctx, t.ID); err != nil {
				return "", err
			}
			return fmt.Sprintf("Deleted %q", t.Text), nil
		})

	case "n", "N", "esc", "q":
		m.mode = ModeNormal
		m.deleting = task.Task{}
	}
	return m, nil
}

func nextPriority(p task.Priority) task.Priority {
	switch p {
	case "":
		return task.PriorityHigh
	case task.PriorityHigh:
		return task.PriorityMedium
	case task.PriorityMedium:
		return task.PriorityLow
	default:
		return ""
	}
}

func nextStatus(s views.Status) views.Status {
	switch s {
	case views.StatusActive:
		return views.StatusCompleted
	case views.StatusCompleted:
		return views.StatusAll
	default:
		return views.StatusActive
	}
}

// nextTag cycles "" -> first tag -> ... -> last tag -> "". A tag that no
// longer exists restarts the cycle.
func nextTag(tags []string, current string) string {
	if current == "" {
		if len(tags) == 0 {
			return ""
		}
		return tags[0]
	}
	for i, tag := range tags {
		if tag == current && i+1 < len(tags) {
			return tags[i+1]
		}
	}
	return ""
}

func nextSort(k views.SortKey) views.SortKey {
	for i, key := range views.SortKeys {
		if key == k {
			return views.SortKeys[(i+1)%len(views.SortKeys)]
		}
	}
	return views.SortPriority
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	switch m.mode {
	case ModeAdd:
		return m.renderFormDialog("Add Task")
	case ModeEdit:
		return m.renderFormDialog(m.editTitle())
	case ModeHelp:
		return m.renderHelpDialog()
	case ModeConfirmDelete:
		return m.renderConfirmDialog(fmt.Sprintf("Delete %q?", m.deleting.Text))
	case ModeConfirmClear:
		return m.renderConfirmDialog("Delete all completed tasks?")
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if m.mode == ModeFilter {
		b.WriteString("Search: " + m.search.View() + "\n")
	} else {
		b.WriteString(m.styles.filters.Render(m.filterSummary()) + "\n")
	}
	b.WriteString(strings.Repeat("─", m.width) + "\n")
	b.WriteString(m.renderTasks(m.height - 5))
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) editTitle() string {
	if t, ok := m.store.Get(m.editingID); ok {
		return "Edit: " + t.Text
	}
	return "Edit Task"
}

func (m *Model) renderHeader() string {
	st := m.store.Stats(m.due.Today())
	stats := fmt.Sprintf("%d total · %d active · %d completed", st.Total, st.Active, st.Completed)
	if st.Overdue > 0 {
		stats += " · " + m.styles.overdue.Render(fmt.Sprintf("%d overdue", st.Overdue))
	}
	return m.styles.title.Render("TodoLite") + "  " + m.styles.stats.Render(stats)
}

func (m *Model) filterSummary() string {
	or := func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	}
	status := m.query.Status
	if status == "" {
		status = views.StatusAll
	}
	sortKey := m.query.Sort
	if sortKey == "" {
		sortKey = views.SortCreated
	}
	return fmt.Sprintf("Search: %s  Priority: %s  Status: %s  Tag: %s  Sort: %s",
		or(m.query.Search, "-"), or(string(m.query.Priority), "all"), status, or(m.query.Tag, "all"), sortKey)
}

func (m *Model) renderTasks(rows int) string {
	if rows < 1 {
		rows = 1
	}
	if len(m.tasks) == 0 {
		msg := views.EmptyFilteredMessage
		if m.store.Len() == 0 {
			msg = views.EmptyStoreMessage
		}
		return m.styles.empty.Render(msg) + "\n" + strings.Repeat("\n", rows-1)
	}

	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	end := m.offset + rows
	if end > len(m.tasks) {
		end = len(m.tasks)
	}

	var b strings.Builder
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderTask(m.tasks[i], i == m.cursor))
		b.WriteString("\n")
	}
	for i := end - m.offset; i < rows; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderTask(t task.Task, selected bool) string {
	cursor := " "
	if selected {
		cursor = ">"
	}

	status := "[ ]"
	if t.Completed {
		status = "[x]"
	}

	text := t.Text
	switch {
	case t.Completed:
		text = m.styles.completed.Render(text)
	case selected:
		text = m.styles.selected.Render(text)
	}

	parts := []string{cursor, status, m.styles.priorityDot(t.Priority), text}

	if label := m.due.FormatRelative(t.DueDate); label != "" {
		if !t.Completed && m.due.IsOverdue(t.DueDate) {
			parts = append(parts, m.styles.overdue.Render(label))
		} else {
			parts = append(parts, m.styles.due.Render("· "+label))
		}
	}
	if label := views.RepeatLabel(t.Recurring); label != "" {
		parts = append(parts, m.styles.repeat.Render(label))
	}
	if len(t.Tags) > 0 {
		parts = append(parts, m.styles.tags.Render("#"+strings.Join(t.Tags, " #")))
	}
	return strings.Join(parts, " ")
}

func (m *Model) renderStatusBar() string {
	left := m.message
	if m.isError {
		left = "Error: " + left
	}
	right := "a:add  e:edit  x:toggle  d:delete  ?:help  q:quit"

	padding := m.width - len(left) - len(right) - 2
	if padding < 1 {
		padding = 1
	}
	return m.styles.statusBar.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m *Model) renderFormDialog(title string) string {
	dialog := m.styles.dialog.Render(
		title + "\n\n" +
			m.form.view(m.styles) + "\n" +
			m.styles.help.Render("Tab: next field  Enter: save  Esc: cancel"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) renderHelpDialog() string {
	help := `Help - Key Bindings

Navigation:
  j/↓      Move down
  k/↑      Move up

Actions:
  a        Add task
  e        Edit selected task
  x/space  Toggle completion
  d        Delete task (with confirm)
  C        Clear completed tasks

Filters:
  /        Search text and tags
  p        Cycle priority filter
  s        Cycle status filter
  t        Cycle tag filter
  o        Cycle sort order
  esc      Clear filters

General:
  D        Toggle dark mode
  ?        Show this help
  q        Quit`

	return m.centerDialog(m.styles.dialog.Render(help))
}

func (m *Model) renderConfirmDialog(question string) string {
	dialog := m.styles.dialog.Render(
		question + "\n\n" +
			m.styles.help.Render("y: yes  n: no"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) centerDialog(dialog string) string {
	lines := strings.Split(dialog, "\n")
	dialogHeight := len(lines)
	dialogWidth := 0
	for _, line := range lines {
		if w := len([]rune(line)); w > dialogWidth {
			dialogWidth = w
		}
	}

	topPad := (m.height - dialogHeight) / 2
	leftPad := (m.width - dialogWidth) / 2
	if topPad < 0 {
		topPad = 0
	}
	if leftPad < 0 {
		leftPad = 0
	}

	var b strings.Builder
	for i := 0; i < topPad; i++ {
		b.WriteString("\n")
	}
	for _, line := range lines {
		b.WriteString(strings.Repeat(" ", leftPad))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
