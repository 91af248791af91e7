package notification

import (
	"fmt"
	"os/exec"
	"strings"
)

// desktopCommand builds the notifier invocation for one platform.
type desktopCommand func(title, message string) (string, []string)

var desktopCommands = map[string]desktopCommand{
	"linux":   notifySend,
	"freebsd": notifySend,
	"openbsd": notifySend,
	"darwin": func(title, message string) (string, []string) {
		script := fmt.Sprintf(`display notification "%s" with title "%s"`,
			escapeAppleScript(message), escapeAppleScript(title))
		return "osascript", []string{"-e", script}
	},
	"windows": func(title, message string) (string, []string) {
		script := fmt.Sprintf(balloonScript, escapePowerShell(title), escapePowerShell(message))
		return "powershell", []string{"-Command", script}
	},
}

func notifySend(title, message string) (string, []string) {
	return "notify-send", []string{"--app-name=todolite", title, message}
}

const balloonScript = `
Add-Type -AssemblyName System.Windows.Forms
$notification = New-Object System.Windows.Forms.NotifyIcon
$notification.Icon = [System.Drawing.SystemIcons]::Information
$notification.BalloonTipTitle = "%s"
$notification.BalloonTipText = "%s"
$notification.Visible = $true
$notification.ShowBalloonTip(5000)
`

// escapeAppleScript escapes backslashes and double quotes for an
// AppleScript string literal.
func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// escapePowerShell escapes backticks, double quotes and dollar signs for a
// PowerShell double-quoted string.
func escapePowerShell(s string) string {
	return strings.NewReplacer("`", "``", `"`, "`\"", "$", "`$").Replace(s)
}

// osChannel shows reminders with the platform's desktop notifier.
type osChannel struct {
	config *OSNotificationConfig
	settings
}

// NewOSNotificationChannel creates a desktop notification channel.
func NewOSNotificationChannel(cfg *OSNotificationConfig, opts ...Option) NotificationChannel {
	return newOSChannel(cfg, newSettings(opts))
}

func newOSChannel(cfg *OSNotificationConfig, s settings) *osChannel {
	return &osChannel{config: cfg, settings: s}
}

// available reports whether the platform has a notifier and it is installed.
func (c *osChannel) available() bool {
	build, ok := desktopCommands[c.platform]
	if !ok {
		return false
	}
	cmd, _ := build("", "")
	return c.executor.Available(cmd)
}

func (c *osChannel) wants(t NotificationType) bool {
	switch t {
	case NotifyDueToday:
		return c.config.OnDueToday
	case NotifyOverdue:
		return c.config.OnOverdue
	}
	return true
}

// Send shows n unless its type is switched off.
func (c *osChannel) Send(n Notification) error {
	if !c.wants(n.Type) {
		return nil
	}
	if c.onSend != nil {
		c.onSend(n)
	}
	build, ok := desktopCommands[c.platform]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", c.platform)
	}
	cmd, args := build(n.Title, n.Message)
	return c.executor.Execute(cmd, args...)
}

func (c *osChannel) Close() error { return nil }

// execCommand runs notifier programs from PATH.
type execCommand struct{}

func (execCommand) Execute(cmd string, args ...string) error {
	return exec.Command(cmd, args...).Run()
}

func (execCommand) Available(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
