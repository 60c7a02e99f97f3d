package utils

import (
	"fmt"
	"strings"
)

// ErrorWithSuggestion wraps an error with a helpful suggestion for the user
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// Common error constructors with suggestions

// ErrCollectionNotFound creates an error when a collection is not found
func ErrCollectionNotFound(name string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("collection '%s' not found", name),
		Suggestion: "Run 'jtxboard collections' to see available collections",
	}
}

// ErrEntryNotFound creates an error when an entry is not found
func ErrEntryNotFound(id int64) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("entry %d not found", id),
		Suggestion: "The entry may have been deleted; run 'jtxboard stats' to check the database state",
	}
}

// ErrDatabaseNotInitialized creates an error when the database is missing
func ErrDatabaseNotInitialized(path string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("database not found at %s", path),
		Suggestion: "Run 'jtxboard init' to create the database",
	}
}

// ErrInvalidPriority creates an error for invalid priority values
func ErrInvalidPriority(priority int) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid priority %d", priority),
		Suggestion: "Priority must be between 0 (no priority) and 9 (lowest priority)",
	}
}

// ErrInvalidDate creates an error for invalid date formats
func ErrInvalidDate(dateStr string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid date format: %s", dateStr),
		Suggestion: "Use YYYY-MM-DD format (e.g., 2026-01-15)",
	}
}

// ErrInvalidStatus creates an error for invalid status values
func ErrInvalidStatus(status string, validStatuses []string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid status: %s", status),
		Suggestion: fmt.Sprintf("Valid statuses: %s", strings.Join(validStatuses, ", ")),
	}
}

// ErrCredentialsNotFound creates an error when account credentials are missing
func ErrCredentialsNotFound(accountName string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("credentials not found for account '%s'", accountName),
		Suggestion: fmt.Sprintf("Store credentials with 'jtxboard accounts credentials set %s --prompt'", accountName),
	}
}

// ErrConfigFileNotFound creates an error when config file is not found
func ErrConfigFileNotFound(path string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("config file not found at %s", path),
		Suggestion: "Run jtxboard to create a default configuration file",
	}
}

// ErrInvalidConfig creates an error for invalid configuration
func ErrInvalidConfig(field string, reason string) error {
	return &ErrorWithSuggestion{
		Err:        fmt.Errorf("invalid configuration for '%s': %s", field, reason),
		Suggestion: fmt.Sprintf("Check ~/.config/jtxboard/config.json and fix the '%s' field", field),
	}
}

// WrapWithSuggestion wraps an existing error with a suggestion
func WrapWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}
