package utils

import (
	"errors"
	"testing"
)

func TestLoggerVerboseToggle(t *testing.T) {
	logger := GetLogger()

	logger.SetVerbose(true)
	if !logger.IsVerbose() {
		t.Error("logger should report verbose after SetVerbose(true)")
	}

	logger.SetVerbose(false)
	if logger.IsVerbose() {
		t.Error("logger should not report verbose after SetVerbose(false)")
	}
}

func TestGetLoggerReturnsSingleton(t *testing.T) {
	if GetLogger() != GetLogger() {
		t.Error("GetLogger should return the same instance")
	}
}

func TestLogOperation(t *testing.T) {
	// LogOperation must pass the wrapped function's result through unchanged.
	if err := LogOperation("noop", func() error { return nil }); err != nil {
		t.Errorf("LogOperation returned %v for a successful operation", err)
	}

	wantErr := errors.New("operation failed")
	if err := LogOperation("failing", func() error { return wantErr }); err != wantErr {
		t.Errorf("LogOperation returned %v, want the original error", err)
	}
}
