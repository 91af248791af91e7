package credentials

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

var (
	// ErrCredentialNotFound is returned when the keyring holds no entry.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrKeyringNotAvailable is returned when no OS keyring can be reached,
	// for example in a headless container without a Secret Service.
	ErrKeyringNotAvailable = errors.New("system keyring not available")
)

// MockKeyring is a test implementation of the Keyring interface
type MockKeyring struct {
	mu    sync.RWMutex
	store map[string]map[string]string // service -> account -> password
}

// NewMockKeyring creates a new mock keyring for testing
func NewMockKeyring() *MockKeyring {
	return &MockKeyring{
		store: make(map[string]map[string]string),
	}
}

// Set stores a password in the mock keyring
func (m *MockKeyring) Set(service, account, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store[service] == nil {
		m.store[service] = make(map[string]string)
	}
	m.store[service][account] = password
	return nil
}

// Get retrieves a password from the mock keyring
func (m *MockKeyring) Get(service, account string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if password, ok := m.store[service][account]; ok {
		return password, nil
	}
	return "", fmt.Errorf("%s/%s: %w", service, account, ErrCredentialNotFound)
}

// Delete removes a password from the mock keyring
func (m *MockKeyring) Delete(service, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.store[service][account]; ok {
		delete(m.store[service], account)
		return nil
	}
	return fmt.Errorf("%s/%s: %w", service, account, ErrCredentialNotFound)
}

// systemKeyring stores passwords in the OS keyring (Secret Service,
// macOS Keychain or Windows Credential Manager).
type systemKeyring struct{}

func (s *systemKeyring) Set(service, account, password string) error {
	return mapKeyringError(keyring.Set(service, account, password))
}

func (s *systemKeyring) Get(service, account string) (string, error) {
	password, err := keyring.Get(service, account)
	if err != nil {
		return "", mapKeyringError(err)
	}
	return password, nil
}

func (s *systemKeyring) Delete(service, account string) error {
	return mapKeyringError(keyring.Delete(service, account))
}

// mapKeyringError translates go-keyring errors into package errors. Any
// failure other than a missing entry means the keyring cannot be used.
func mapKeyringError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, keyring.ErrNotFound):
		return ErrCredentialNotFound
	case errors.Is(err, keyring.ErrSetDataTooBig):
		return fmt.Errorf("password too long for the system keyring: %w", err)
	default:
		return fmt.Errorf("%w: %v", ErrKeyringNotAvailable, err)
	}
}
