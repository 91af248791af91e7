package tui

import (
	"github.com/charmbracelet/lipgloss"

	"todolite/internal/task"
)

// styles is one colour theme. The dark theme is chosen by the persisted
// dark-mode preference.
type styles struct {
	title     lipgloss.Style
	stats     lipgloss.Style
	filters   lipgloss.Style
	selected  lipgloss.Style
	completed lipgloss.Style
	overdue   lipgloss.Style
	due       lipgloss.Style
	tags      lipgloss.Style
	repeat    lipgloss.Style
	empty     lipgloss.Style
	help      lipgloss.Style
	errorText lipgloss.Style
	dialog    lipgloss.Style
	statusBar lipgloss.Style
	priority  map[task.Priority]lipgloss.Style
}

func newStyles(dark bool) styles {
	fg, muted, accent, barBg, barFg := lipgloss.Color("235"), lipgloss.Color("245"), lipgloss.Color("63"), lipgloss.Color("254"), lipgloss.Color("236")
	if dark {
		fg, muted, accent, barBg, barFg = lipgloss.Color("252"), lipgloss.Color("241"), lipgloss.Color("212"), lipgloss.Color("236"), lipgloss.Color("252")
	}

	return styles{
		title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		stats:     lipgloss.NewStyle().Foreground(muted),
		filters:   lipgloss.NewStyle().Foreground(muted),
		selected:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		completed: lipgloss.NewStyle().Strikethrough(true).Foreground(muted),
		overdue:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		due:       lipgloss.NewStyle().Foreground(fg),
		tags:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		repeat:    lipgloss.NewStyle().Italic(true).Foreground(muted),
		empty:     lipgloss.NewStyle().Italic(true).Foreground(muted),
		help:      lipgloss.NewStyle().Foreground(muted),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2),
		statusBar: lipgloss.NewStyle().
			Background(barBg).
			Foreground(barFg).
			Padding(0, 1),
		priority: map[task.Priority]lipgloss.Style{
			task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
			task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		},
	}
}

// priorityDot renders the coloured marker in front of a task.
func (s styles) priorityDot(p task.Priority) string {
	st, ok := s.priority[p]
	if !ok {
		st = s.priority[task.PriorityMedium]
	}
	return st.Render("●")
}
