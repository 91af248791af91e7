// Package credentials stores backend passwords (currently the Redis
// password) in the OS keyring, with environment variables as fallback.
package credentials

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Source indicates where credentials were retrieved from
type Source string

const (
	SourceKeyring     Source = "keyring"
	SourceEnvironment Source = "environment"
	SourceNone        Source = "none"
)

// CredentialInfo is the result of a lookup. The password never leaves
// the process in JSON.
type CredentialInfo struct {
	Source   Source `json:"source"`
	Backend  string `json:"backend"`
	Username string `json:"username"`
	Password string `json:"-"`
	Found    bool   `json:"found"`
}

// JSON serializes the credential info without the password.
func (c *CredentialInfo) JSON() ([]byte, error) {
	return json.Marshal(c)
}

// BackendConfig names a backend account to report on.
type BackendConfig struct {
	Name     string
	Username string
}

// BackendStatus is one row of credentials list.
type BackendStatus struct {
	Backend        string `json:"backend"`
	Username       string `json:"username"`
	HasCredentials bool   `json:"has_credentials"`
	Source         Source `json:"source,omitempty"`
}

// Keyring is the interface for keyring operations
type Keyring interface {
	Set(service, account, password string) error
	Get(service, account string) (string, error)
	Delete(service, account string) error
}

// Manager handles credential operations
type Manager struct {
	keyring Keyring
	getenv  func(string) string
}

// ManagerOption is a functional option for Manager
type ManagerOption func(*Manager)

// WithKeyring sets a custom keyring implementation
func WithKeyring(k Keyring) ManagerOption {
	return func(m *Manager) {
		m.keyring = k
	}
}

// WithEnv replaces os.Getenv for environment lookups.
func WithEnv(getenv func(string) string) ManagerOption {
	return func(m *Manager) {
		m.getenv = getenv
	}
}

// NewManager creates a new credential manager backed by the system keyring.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		keyring: &systemKeyring{},
		getenv:  os.Getenv,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func normalizeBackend(backend string) string {
	return strings.ToLower(strings.TrimSpace(backend))
}

// serviceName returns the keyring service name for a backend
func serviceName(backend string) string {
	return fmt.Sprintf("todolite-%s", normalizeBackend(backend))
}

// Set stores credentials in the keyring
func (m *Manager) Set(ctx context.Context, backend, username, password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}
	return m.keyring.Set(serviceName(backend), username, password)
}

// Get looks the password up in the keyring first, then in
// TODOLITE_<BACKEND>_PASSWORD.
func (m *Manager) Get(ctx context.Context, backend, username string) (*CredentialInfo, error) {
	backend = normalizeBackend(backend)
	info := &CredentialInfo{
		Source:   SourceNone,
		Backend:  backend,
		Username: username,
	}

	password, err := m.keyring.Get(serviceName(backend), username)
	switch {
	case err == nil && password != "":
		info.Source = SourceKeyring
		info.Password = password
		info.Found = true
		return info, nil
	case err != nil && !errors.Is(err, ErrCredentialNotFound) && !errors.Is(err, ErrKeyringNotAvailable):
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	if envPassword := m.envPassword(backend, username); envPassword != "" {
		info.Source = SourceEnvironment
		info.Password = envPassword
		info.Found = true
	}
	return info, nil
}

// envPassword reads TODOLITE_<BACKEND>_PASSWORD. When
// TODOLITE_<BACKEND>_USERNAME is set it must match username.
func (m *Manager) envPassword(backend, username string) string {
	prefix := "TODOLITE_" + strings.ToUpper(backend)

	if envUser := m.getenv(prefix + "_USERNAME"); envUser != "" && envUser != username {
		return ""
	}
	return m.getenv(prefix + "_PASSWORD")
}

// Delete removes credentials from the keyring. Deleting missing
// credentials is not an error.
func (m *Manager) Delete(ctx context.Context, backend, username string) error {
	err := m.keyring.Delete(serviceName(backend), username)
	if errors.Is(err, ErrCredentialNotFound) {
		return nil
	}
	return err
}

// ListBackends returns the credential status for each configured backend
func (m *Manager) ListBackends(ctx context.Context, backends []BackendConfig) ([]BackendStatus, error) {
	statuses := make([]BackendStatus, 0, len(backends))
	for _, bc := range backends {
		info, err := m.Get(ctx, bc.Name, bc.Username)
		if err != nil {
			return nil, err
		}
		st := BackendStatus{Backend: info.Backend, Username: bc.Username, HasCredentials: info.Found}
		if info.Found {
			st.Source = info.Source
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// PromptPassword asks for a password. Input is hidden when reader is a
// terminal; otherwise one line is read.
func PromptPassword(reader io.Reader, writer io.Writer, backend, username string) (string, error) {
	_, _ = fmt.Fprintf(writer, "Enter password for %s (user: %s): ", backend, username)

	if f, ok := reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(writer)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	scanner := bufio.NewScanner(reader)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no input received")
}
