package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todolite/internal/config"
	"todolite/internal/notification"
	"todolite/internal/reminder"
	"todolite/internal/shutdown"
	"todolite/internal/task"
	"todolite/internal/utils"
)

const remindersDisabledMessage = "Reminders are disabled. Set reminder.enabled: true in the config to allow notifications."

type reminderJSON struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	DueDate task.Date `json:"dueDate"`
	Type    string    `json:"type"`
}

// newNotifier builds the notification manager from the reminder config.
// The returned close function is a no-op for an injected notifier.
func newNotifier(conf *config.Config, cfg *Config) (notification.NotificationManager, func() error, error) {
	if cfg.Notifier != nil {
		return cfg.Notifier, func() error { return nil }, nil
	}
	m, err := notification.NewManager(&notification.Config{
		Enabled: conf.Reminder.Enabled,
		OSNotification: notification.OSNotificationConfig{
			Enabled:    conf.IsOSNotificationEnabled(),
			OnDueToday: true,
			OnOverdue:  true,
		},
		LogNotification: notification.LogNotificationConfig{
			Enabled:   conf.Reminder.LogNotification,
			Path:      conf.GetNotificationLogPath(),
			MaxSizeMB: 10,
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return m, m.Close, nil
}

// newReminderService wires a reminder service to the configured notifier.
func newReminderService(a *app) (*reminder.Service, func() error, error) {
	notifier, closeFn, err := newNotifier(a.conf, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := reminder.NewService(&reminder.Config{
		Enabled:  a.conf.Reminder.Enabled,
		Interval: a.conf.GetReminderInterval(),
	}, a.due)
	svc.SetNotifier(notifier)
	return svc, closeFn, nil
}

// newRemindCmd creates the 'remind' subcommand
func newRemindCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Notify about tasks due today or overdue",
		Long:  "Check once for open tasks that are due today or overdue and send a notification for each.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.conf.Reminder.Enabled {
				if a.json {
					return writeJSON(stdout, map[string]interface{}{"enabled": false, "reminders": []reminderJSON{}, "result": ResultInfoOnly})
				}
				_, _ = fmt.Fprintln(stdout, remindersDisabledMessage)
				a.result(stdout, ResultInfoOnly)
				return nil
			}

			svc, closeNotifier, err := newReminderService(a)
			if err != nil {
				return err
			}
			defer func() { _ = closeNotifier() }()

			sent := svc.CheckReminders(a.store.Tasks())

			code := ResultActionCompleted
			if len(sent) == 0 {
				code = ResultInfoOnly
			}

			if a.json {
				out := make([]reminderJSON, 0, len(sent))
				for _, r := range sent {
					out = append(out, reminderJSON{ID: r.Task.ID, Text: r.Task.Text, DueDate: r.Task.DueDate, Type: string(r.Type)})
				}
				return writeJSON(stdout, map[string]interface{}{"enabled": true, "reminders": out, "result": code})
			}

			if len(sent) == 0 {
				_, _ = fmt.Fprintln(stdout, "No tasks due today or overdue.")
			}
			for _, r := range sent {
				if r.Type == notification.NotifyOverdue {
					_, _ = fmt.Fprintf(stdout, "Overdue: %s (was due %s)\n", r.Task.Text, r.Task.DueDate)
				} else {
					_, _ = fmt.Fprintf(stdout, "Due today: %s\n", r.Task.Text)
				}
			}
			a.result(stdout, code)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRemindLogCmd(stdout, cfg))
	return cmd
}

// newRemindLogCmd creates the 'remind log' subcommand
func newRemindLogCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the notification log",
		Long:  "Show the notifications written to the log channel (reminder.log_notification).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, cfg)
			if err != nil {
				return err
			}
			path := s.conf.GetNotificationLogPath()

			if clearLog, _ := cmd.Flags().GetBool("clear"); clearLog {
				if err := notification.ClearLog(path); err != nil {
					return fmt.Errorf("failed to clear notification log: %w", err)
				}
				_, _ = fmt.Fprintln(stdout, "Notification log cleared.")
				printResult(stdout, cfg, s.json, ResultActionCompleted)
				return nil
			}

			entries, err := notification.ReadLog(path)
			if err != nil {
				return fmt.Errorf("failed to read notification log: %w", err)
			}
			if s.json {
				if entries == nil {
					entries = []string{}
				}
				return writeJSON(stdout, map[string]interface{}{"entries": entries, "result": ResultInfoOnly})
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(stdout, "No notifications logged.")
			}
			for _, e := range entries {
				_, _ = fmt.Fprintln(stdout, e)
			}
			printResult(stdout, cfg, s.json, ResultInfoOnly)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().Bool("clear", false, "Empty the log")
	return cmd
}

// echoNotifier prints every notification before passing it on.
type echoNotifier struct {
	notification.NotificationManager
	w io.Writer
}

func (e echoNotifier) Send(n notification.Notification) error {
	_, _ = fmt.Fprintf(e.w, "%s  %s: %s\n", n.Timestamp.Format("15:04:05"), n.Title, n.Message)
	return e.NotificationManager.Send(n)
}

// newWatchCmd creates the 'watch' subcommand
func newWatchCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep checking for due tasks",
		Long:  "Check for due and overdue tasks every reminder.interval until interrupted. Changes made by other todolite processes are picked up on every check.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.conf.Reminder.Enabled {
				_, _ = fmt.Fprintln(stdout, remindersDisabledMessage)
				a.result(stdout, ResultInfoOnly)
				return nil
			}

			interval := a.conf.GetReminderInterval()
			if s, _ := cmd.Flags().GetString("interval"); s != "" {
				d, err := reminder.ParseInterval(s)
				if err != nil {
					return err
				}
				interval = d
			}
			duration, _ := cmd.Flags().GetDuration("duration")

			notifier, closeNotifier, err := newNotifier(a.conf, cfg)
			if err != nil {
				return err
			}
			svc := reminder.NewService(&reminder.Config{Enabled: true, Interval: interval}, a.due)
			svc.SetNotifier(echoNotifier{NotificationManager: notifier, w: stdout})

			sm := shutdown.NewManager()
			sm.RegisterCleanup("notifier", func(context.Context) error { return closeNotifier() })
			stop := sm.NotifyOnSignal(os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctx := sm.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			_, _ = fmt.Fprintf(stdout, "Watching for due tasks every %s (session %s)\n", interval, svc.SessionID())
			svc.Run(ctx, func() []task.Task {
				a.store.ReloadIfChanged(ctx)
				return a.store.Tasks()
			}, interval)

			sm.Shutdown()
			waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sm.Wait(waitCtx); err != nil {
				utils.Warnf("shutdown did not finish: %v", err)
			}

			_, _ = fmt.Fprintln(stdout, "Stopped watching.")
			a.result(stdout, ResultInfoOnly)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().String("interval", "", "Override reminder.interval (e.g. 30s, 5m)")
	cmd.Flags().Duration("duration", 0, "Stop after this long (default: until interrupted)")
	return cmd
}
