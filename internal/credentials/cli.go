package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CLIHandler implements the credentials subcommands.
type CLIHandler struct {
	manager *Manager
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewCLIHandler creates a new CLI handler for credential commands
func NewCLIHandler(manager *Manager, stdin io.Reader, stdout, stderr io.Writer) *CLIHandler {
	return &CLIHandler{manager: manager, stdin: stdin, stdout: stdout, stderr: stderr}
}

func (h *CLIHandler) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(h.stdout, format, args...)
}

func (h *CLIHandler) printJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.printf("%s\n", data)
	return nil
}

// Set prompts for a password and stores it in the keyring.
func (h *CLIHandler) Set(ctx context.Context, backend, username string) error {
	password, err := PromptPassword(h.stdin, h.stdout, backend, username)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	err = h.manager.Set(ctx, backend, username, password)
	switch {
	case errors.Is(err, ErrKeyringNotAvailable):
		return envFallbackError(backend)
	case err != nil:
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	h.printf("Credentials stored in system keyring\n")
	return nil
}

// envFallbackError explains how to pass the password without a keyring.
func envFallbackError(backend string) error {
	name := normalizeBackend(backend)
	env := "TODOLITE_" + strings.ToUpper(name)

	var sb strings.Builder
	sb.WriteString("System keyring not available.\n\n")
	sb.WriteString("Use environment variables instead:\n")
	fmt.Fprintf(&sb, "  export %s_USERNAME=\"your-user\"\n", env)
	fmt.Fprintf(&sb, "  export %s_PASSWORD=\"your-password\"\n\n", env)
	fmt.Fprintf(&sb, "Run 'todolite credentials get %s <user>' to verify they are detected.", name)
	return errors.New(sb.String())
}

// Get reports where the password for backend/username comes from. The
// password itself is masked.
func (h *CLIHandler) Get(ctx context.Context, backend, username string, jsonOutput bool) error {
	info, err := h.manager.Get(ctx, backend, username)
	if err != nil {
		return fmt.Errorf("failed to get credentials: %w", err)
	}
	if jsonOutput {
		return h.printJSON(info)
	}

	if !info.Found {
		h.printf("No credentials found for %s/%s\n", info.Backend, info.Username)
		h.printf("Searched the system keyring and %s_PASSWORD.\n", "TODOLITE_"+strings.ToUpper(info.Backend))
		h.printf("\nSuggestion: Run 'todolite credentials set %s %s'\n", info.Backend, info.Username)
		return nil
	}
	h.printf("Backend: %s\nUsername: %s\nPassword: ******** (hidden)\nSource: %s\n",
		info.Backend, info.Username, info.Source)
	return nil
}

// Delete removes credentials from the keyring
func (h *CLIHandler) Delete(ctx context.Context, backend, username string) error {
	if err := h.manager.Delete(ctx, backend, username); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	h.printf("Credentials removed from system keyring\n")
	return nil
}

// List prints one row per configured backend account.
func (h *CLIHandler) List(ctx context.Context, backends []BackendConfig, jsonOutput bool) error {
	statuses, err := h.manager.ListBackends(ctx, backends)
	if err != nil {
		return fmt.Errorf("failed to list credentials: %w", err)
	}
	if jsonOutput {
		return h.printJSON(statuses)
	}

	const row = "%-12s %-20s %-15s %s\n"
	h.printf(row, "BACKEND", "USERNAME", "STATUS", "SOURCE")
	for _, s := range statuses {
		if s.HasCredentials {
			h.printf(row, s.Backend, s.Username, "Available", s.Source)
		} else {
			h.printf(row, s.Backend, s.Username, "Not configured", "-")
		}
	}
	return nil
}
