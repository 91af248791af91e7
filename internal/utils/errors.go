package utils

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every error returned by the task store for bad input
// matches one of these with errors.Is.
var (
	// ErrValidation marks input the store refuses (empty text, unknown priority).
	ErrValidation = errors.New("validation error")
	// ErrFormat marks an import file with an unrecognised shape.
	ErrFormat = errors.New("format error")
	// ErrNotFound marks an operation on a task id that is not in the store.
	ErrNotFound = errors.New("not found")
)

// ErrorWithSuggestion wraps an error with a user-friendly suggestion.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface.
func (e *ErrorWithSuggestion) Error() string {
	return fmt.Sprintf("%s\n\nSuggestion: %s", e.Err.Error(), e.Suggestion)
}

// GetSuggestion returns the suggestion text.
func (e *ErrorWithSuggestion) GetSuggestion() string {
	return e.Suggestion
}

// Unwrap returns the underlying error for error chain support.
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// WrapWithSuggestion wraps an existing error with a suggestion.
func WrapWithSuggestion(err error, suggestion string) error {
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// ErrEmptyText is returned when a task's text is blank after trimming.
func ErrEmptyText() error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: task text cannot be empty", ErrValidation),
		Suggestion: "Please enter a task!",
	}
}

// ErrTaskNotFound returns an error for when a task id is not in the store.
func ErrTaskNotFound(id int64) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: task %d", ErrNotFound, id),
		Suggestion: "Use 'todolite list' to see task ids",
	}
}

// ErrInvalidPriority returns an error for an unknown priority name.
func ErrInvalidPriority(priority string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: invalid priority %q", ErrValidation, priority),
		Suggestion: "Priority must be one of: low, medium, high",
	}
}

// ErrInvalidRecurrence returns an error for an unknown repeat interval.
func ErrInvalidRecurrence(interval string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: invalid repeat interval %q", ErrValidation, interval),
		Suggestion: "Repeat must be one of: daily, weekly, monthly (or empty for none)",
	}
}

// ErrInvalidDate returns an error for an invalid date string.
func ErrInvalidDate(dateStr string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: invalid date %q", ErrValidation, dateStr),
		Suggestion: "Use date format YYYY-MM-DD (e.g., 2026-01-15), today, tomorrow or +3d",
	}
}

// ErrInvalidImportFormat is returned when an import file is neither a task
// array nor an object with a tasks array.
func ErrInvalidImportFormat(reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: invalid file format: %s", ErrFormat, reason),
		Suggestion: "Make sure it is a valid JSON file exported by todolite",
	}
}

// ErrInvalidImportEntry is returned when an import entry lacks an id or
// text. It matches both ErrFormat and ErrValidation.
func ErrInvalidImportEntry(index int, reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: %w: invalid task data in file: entry %d %s", ErrFormat, ErrValidation, index, reason),
		Suggestion: "Each task needs a numeric id and non-empty text",
	}
}

// ErrInvalidChoice returns an error for a flag value outside a fixed set.
func ErrInvalidChoice(what, value string, valid []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("%w: invalid %s: %s", ErrValidation, what, value),
		Suggestion: fmt.Sprintf("Valid options: %s", strings.Join(valid, ", ")),
	}
}

// ErrCredentialsNotFound returns an error when credentials are missing.
func ErrCredentialsNotFound(backend, user string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("credentials not found for %s user %s", backend, user),
		Suggestion: fmt.Sprintf("Run 'todolite credentials set %s %s' to store them", backend, user),
	}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsFormat reports whether err is an import format error.
func IsFormat(err error) bool {
	return errors.Is(err, ErrFormat)
}
