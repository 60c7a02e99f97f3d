package utils

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorWithSuggestion_Error(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		suggestion     string
		wantContains   []string
		wantNotContain string
	}{
		{
			name:         "with suggestion",
			err:          errors.New("entry not found"),
			suggestion:   "Try a different id",
			wantContains: []string{"entry not found", "Suggestion:", "Try a different id"},
		},
		{
			name:           "without suggestion",
			err:            errors.New("simple error"),
			suggestion:     "",
			wantContains:   []string{"simple error"},
			wantNotContain: "Suggestion:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &ErrorWithSuggestion{
				Err:        tt.err,
				Suggestion: tt.suggestion,
			}

			result := e.Error()

			for _, want := range tt.wantContains {
				if !strings.Contains(result, want) {
					t.Errorf("Error() = %q, want to contain %q", result, want)
				}
			}

			if tt.wantNotContain != "" && strings.Contains(result, tt.wantNotContain) {
				t.Errorf("Error() = %q, should not contain %q", result, tt.wantNotContain)
			}
		})
	}
}

func TestErrorWithSuggestion_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrapped := &ErrorWithSuggestion{
		Err:        originalErr,
		Suggestion: "do something",
	}

	unwrapped := wrapped.Unwrap()
	if unwrapped != originalErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, originalErr)
	}

	// Test with errors.Is
	if !errors.Is(wrapped, originalErr) {
		t.Error("errors.Is should work with wrapped error")
	}
}

func TestErrCollectionNotFound(t *testing.T) {
	err := ErrCollectionNotFound("Personal")

	errStr := err.Error()
	if !strings.Contains(errStr, "Personal") {
		t.Errorf("Error should contain collection name 'Personal', got: %s", errStr)
	}
	if !strings.Contains(errStr, "jtxboard collections") {
		t.Errorf("Error should suggest 'jtxboard collections', got: %s", errStr)
	}
}

func TestErrEntryNotFound(t *testing.T) {
	err := ErrEntryNotFound(42)

	errStr := err.Error()
	if !strings.Contains(errStr, "42") {
		t.Errorf("Error should contain entry id, got: %s", errStr)
	}
	if !strings.Contains(errStr, "Suggestion:") {
		t.Errorf("Error should contain suggestion, got: %s", errStr)
	}
}

func TestErrDatabaseNotInitialized(t *testing.T) {
	err := ErrDatabaseNotInitialized("/tmp/jtx.db")

	errStr := err.Error()
	if !strings.Contains(errStr, "/tmp/jtx.db") {
		t.Errorf("Error should contain database path, got: %s", errStr)
	}
	if !strings.Contains(errStr, "jtxboard init") {
		t.Errorf("Error should suggest 'jtxboard init', got: %s", errStr)
	}
}

func TestErrInvalidPriority(t *testing.T) {
	err := ErrInvalidPriority(15)

	errStr := err.Error()
	if !strings.Contains(errStr, "15") {
		t.Errorf("Error should contain invalid value, got: %s", errStr)
	}
	if !strings.Contains(errStr, "between 0") {
		t.Errorf("Error should explain valid range, got: %s", errStr)
	}
}

func TestErrInvalidStatus(t *testing.T) {
	err := ErrInvalidStatus("DONE", []string{"NEEDS-ACTION", "COMPLETED"})

	errStr := err.Error()
	if !strings.Contains(errStr, "DONE") {
		t.Errorf("Error should contain invalid status, got: %s", errStr)
	}
	if !strings.Contains(errStr, "NEEDS-ACTION, COMPLETED") {
		t.Errorf("Error should list valid statuses, got: %s", errStr)
	}
}

func TestErrCredentialsNotFound(t *testing.T) {
	err := ErrCredentialsNotFound("dav-home")

	errStr := err.Error()
	if !strings.Contains(errStr, "dav-home") {
		t.Errorf("Error should contain account name, got: %s", errStr)
	}
	if !strings.Contains(errStr, "credentials set") {
		t.Errorf("Error should suggest storing credentials, got: %s", errStr)
	}
}

func TestErrInvalidConfig(t *testing.T) {
	err := ErrInvalidConfig("authority", "must not be empty")

	errStr := err.Error()
	if !strings.Contains(errStr, "authority") {
		t.Errorf("Error should contain field name, got: %s", errStr)
	}
	if !strings.Contains(errStr, "must not be empty") {
		t.Errorf("Error should contain reason, got: %s", errStr)
	}
}

func TestWrapWithSuggestion(t *testing.T) {
	t.Run("wraps error", func(t *testing.T) {
		base := errors.New("base failure")
		wrapped := WrapWithSuggestion(base, "try again")

		if !errors.Is(wrapped, base) {
			t.Error("wrapped error should match base via errors.Is")
		}
		if !strings.Contains(wrapped.Error(), "try again") {
			t.Errorf("wrapped error should contain suggestion, got: %s", wrapped.Error())
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		if err := WrapWithSuggestion(nil, "unused"); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})
}
