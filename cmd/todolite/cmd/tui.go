package cmd

import (
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"todolite/backend"
	"todolite/backend/file"
	"todolite/internal/tui"
	"todolite/internal/utils"
	"todolite/internal/watcher"
)

// newTUICmd creates the 'tui' subcommand
func newTUICmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive task list",
		Long:  "Open the full-screen task list. Press ? inside for the key bindings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringP("view", "v", "", "View to start with")
	return cmd
}

// runTUI opens the store and runs the interactive list until the user quits.
func runTUI(cmd *cobra.Command, cfg *Config) error {
	a, err := openApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Log lines would corrupt the alternate screen.
	logPath := os.DevNull
	if a.conf.IsBackgroundLoggingEnabled() {
		logPath = a.conf.GetBackgroundLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			utils.Debugf("cannot create log directory: %v", err)
		}
	}
	bl, err := utils.NewBackgroundLogger(logPath)
	if err != nil {
		utils.Debugf("background logging disabled: %v", err)
	}
	defer bl.Close()

	var viewName string
	if f := cmd.Flags().Lookup("view"); f != nil {
		viewName = f.Value.String()
	}
	_, q, err := resolveQuery(viewName, a.conf, cfg)
	if err != nil {
		return err
	}

	opts := tui.Options{
		Query:            q,
		Classifier:       a.due,
		ReminderInterval: a.conf.GetReminderInterval(),
	}
	if a.conf.Reminder.Enabled {
		svc, closeNotifier, err := newReminderService(a)
		if err != nil {
			return err
		}
		defer func() { _ = closeNotifier() }()
		opts.Reminders = svc
	}

	model := tui.New(a.store, opts)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	// Another todolite process may save to the same files while the list
	// is open.
	if fb, ok := a.blobs.(*file.Backend); ok {
		w, err := watcher.New(watcher.DefaultConfig(
			func() { p.Send(tui.StoreChangedMsg{}) },
			fb.Path(a.conf.GetTasksKey()),
		))
		if err != nil {
			utils.Debugf("file watcher disabled: %v", err)
		} else if err := w.Start(); err != nil {
			utils.Debugf("file watcher disabled: %v", err)
		} else {
			defer w.Stop()
			utils.Debugf("watching %s", backend.Describe(a.blobs, "file"))
		}
	}

	_, err = p.Run()
	return err
}
