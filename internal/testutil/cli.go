// Package testutil provides shared test utilities for CLI testing across packages.
// This enables co-located CLI tests while maintaining consistent test infrastructure.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"todolite/cmd/todolite/cmd"
	"todolite/internal/credentials"
	"todolite/internal/notification"
)

// defaultTestConfig is the minimal config used by the test constructors to ensure isolation.
const defaultTestConfig = "# test config\nstorage:\n  backend: file\n"

// FixedNow is the clock every CLITest starts with: Wednesday 2024-01-31 09:30 local.
func FixedNow() time.Time {
	return time.Date(2024, time.January, 31, 9, 30, 0, 0, time.Local)
}

// CLITest provides a test helper for running CLI commands in isolation.
type CLITest struct {
	t          *testing.T
	cfg        *cmd.Config
	tmpDir     string
	configPath string
	notifier   *NotificationRecorder
	keyring    *credentials.MockKeyring
}

// NewCLITest creates a CLI test helper with its own config file, data
// directory, keyring and notification recorder.
func NewCLITest(t *testing.T) *CLITest {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte(defaultTestConfig), 0644); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	notifier := &NotificationRecorder{}
	keyring := credentials.NewMockKeyring()

	cfg := &cmd.Config{
		NoPrompt:   true,
		ConfigPath: configPath,
		DataDir:    filepath.Join(tmpDir, "data"),
		ViewsPath:  filepath.Join(tmpDir, "views"),
		Now:        FixedNow,
		Stdin:      strings.NewReader(""),
		Notifier:   notifier,
		Keyring:    keyring,
	}

	return &CLITest{
		t:          t,
		cfg:        cfg,
		tmpDir:     tmpDir,
		configPath: configPath,
		notifier:   notifier,
		keyring:    keyring,
	}
}

// NewCLITestWithViews creates a CLI test helper and its views directory.
// Returns the CLITest and the viewsDir (for placing view YAML files).
func NewCLITestWithViews(t *testing.T) (*CLITest, string) {
	t.Helper()

	c := NewCLITest(t)
	if err := os.MkdirAll(c.cfg.ViewsPath, 0755); err != nil {
		t.Fatalf("failed to create views directory: %v", err)
	}
	return c, c.cfg.ViewsPath
}

// Config returns the test configuration.
func (c *CLITest) Config() *cmd.Config {
	return c.cfg
}

// TmpDir returns the temporary directory for the test.
func (c *CLITest) TmpDir() string {
	return c.tmpDir
}

// DataDir returns the directory the file backend writes to.
func (c *CLITest) DataDir() string {
	return c.cfg.DataDir
}

// ConfigPath returns the path to the config file.
func (c *CLITest) ConfigPath() string {
	return c.configPath
}

// Keyring returns the in-memory keyring used instead of the system one.
func (c *CLITest) Keyring() *credentials.MockKeyring {
	return c.keyring
}

// Notifications returns the notifications sent so far.
func (c *CLITest) Notifications() []notification.Notification {
	return c.notifier.Sent()
}

// SetNow replaces the clock.
func (c *CLITest) SetNow(now time.Time) {
	c.cfg.Now = func() time.Time { return now }
}

// SetStdin sets the input the next command reads prompts from.
func (c *CLITest) SetStdin(input string) {
	c.cfg.Stdin = strings.NewReader(input)
}

// SetInteractive turns prompts on (and result codes off) for later commands.
func (c *CLITest) SetInteractive(input string) {
	c.cfg.NoPrompt = false
	c.SetStdin(input)
}

// SetConfigValue appends a top-level key-value pair to the test config file.
func (c *CLITest) SetConfigValue(key, value string) {
	c.t.Helper()

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		c.t.Fatalf("failed to read config file: %v", err)
	}

	newConfig := string(data) + key + ": " + value + "\n"

	if err := os.WriteFile(c.configPath, []byte(newConfig), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// SetFullConfig replaces the entire config file with the given YAML content.
func (c *CLITest) SetFullConfig(yamlContent string) {
	c.t.Helper()

	if err := os.WriteFile(c.configPath, []byte(yamlContent), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// WriteFile writes content to name inside the temp dir and returns its path.
func (c *CLITest) WriteFile(name, content string) string {
	c.t.Helper()

	path := filepath.Join(c.tmpDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		c.t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// Execute runs a CLI command with the given arguments and returns stdout, stderr, and exit code.
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = cmd.Execute(args, &stdoutBuf, &stderrBuf, c.cfg)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

// MustExecute runs a CLI command and fails the test if exit code is non-zero.
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test if exit code is zero.
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string) {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr
}

// AssertContains fails the test if output doesn't contain expected string.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains fails the test if output contains unexpected string.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// AssertExitCode fails the test if exit code doesn't match expected.
func AssertExitCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}

// AssertResultCode verifies that the output ends with the expected result code.
func AssertResultCode(t *testing.T, output, expectedCode string) {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		t.Errorf("expected result code %q but output is empty", expectedCode)
		return
	}
	lastLine := strings.TrimSpace(lines[len(lines)-1])
	if lastLine != expectedCode {
		t.Errorf("expected result code %q, got %q\nFull output:\n%s", expectedCode, lastLine, output)
	}
}

// Result code constants for convenience.
const (
	ResultActionCompleted = cmd.ResultActionCompleted
	ResultInfoOnly        = cmd.ResultInfoOnly
	ResultError           = cmd.ResultError
)

// NotificationRecorder is a notification.NotificationManager that keeps
// what it is sent instead of showing it.
type NotificationRecorder struct {
	mu   sync.Mutex
	sent []notification.Notification
}

// Send records n.
func (r *NotificationRecorder) Send(n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Close does nothing.
func (r *NotificationRecorder) Close() error { return nil }

// ChannelCount reports one channel.
func (r *NotificationRecorder) ChannelCount() int { return 1 }

// Sent returns a copy of the recorded notifications.
func (r *NotificationRecorder) Sent() []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification.Notification(nil), r.sent...)
}

var _ notification.NotificationManager = (*NotificationRecorder)(nil)
