package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"todolite/internal/task"
	"todolite/internal/utils"
)

const (
	fieldText = iota
	fieldPriority
	fieldDue
	fieldTags
	fieldRepeat
	fieldCount
)

var fieldLabels = [fieldCount]string{"Text", "Priority", "Due", "Tags", "Repeat"}

// taskForm edits the user-facing fields of one task.
type taskForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
	err    error
}

func newTaskForm(d task.Draft) *taskForm {
	f := &taskForm{}
	placeholders := [fieldCount]string{
		"What needs to be done?",
		"high, medium or low",
		"YYYY-MM-DD, today, tomorrow, +3d",
		"comma,separated",
		"daily, weekly, monthly or empty",
	}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 256
		ti.Width = 40
		f.inputs[i] = ti
	}
	f.inputs[fieldText].SetValue(d.Text)
	f.inputs[fieldPriority].SetValue(string(d.Priority))
	f.inputs[fieldDue].SetValue(string(d.DueDate))
	f.inputs[fieldTags].SetValue(strings.Join(d.Tags, ", "))
	f.inputs[fieldRepeat].SetValue(string(d.Recurring))
	f.inputs[fieldText].Focus()
	return f
}

func (f *taskForm) move(delta int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	return f.inputs[f.focus].Focus()
}

func (f *taskForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// draft converts the form into a Draft. Relative due dates are resolved
// against the store clock; everything else is validated by the store.
func (f *taskForm) draft(store *task.Store) (task.Draft, error) {
	dueDate, err := utils.ParseDueDate(f.inputs[fieldDue].Value(), store.Now())
	if err != nil {
		return task.Draft{}, err
	}
	return task.Draft{
		Text:      f.inputs[fieldText].Value(),
		Priority:  task.Priority(f.inputs[fieldPriority].Value()),
		DueDate:   task.Date(dueDate),
		Tags:      utils.SplitTags(f.inputs[fieldTags].Value()),
		Recurring: task.Recurrence(f.inputs[fieldRepeat].Value()),
	}, nil
}

func (f *taskForm) view(s styles) string {
	var b strings.Builder
	for i, in := range f.inputs {
		label := fieldLabels[i] + ":"
		if i == f.focus {
			label = s.selected.Render(label)
		}
		b.WriteString(label + "\n" + in.View() + "\n")
	}
	if f.err != nil {
		b.WriteString("\n" + s.errorText.Render(f.err.Error()) + "\n")
	}
	return b.String()
}
