package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestAppErrorIs(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := NewSessionError(ErrCodeQuestionFetch, "could not fetch question", cause)
	wrapped := fmt.Errorf("configure: %w", err)

	tests := []struct {
		name   string
		target error
		want   bool
	}{
		{"same code", &AppError{Code: ErrCodeQuestionFetch}, true},
		{"other code", &AppError{Code: ErrCodeCritique}, false},
		{"type only", &AppError{Type: ErrorTypeSession}, true},
		{"other type only", &AppError{Type: ErrorTypeIO}, false},
		{"cause", cause, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stderrors.Is(wrapped, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}

	if !HasCode(wrapped, ErrCodeQuestionFetch) {
		t.Error("HasCode should find the wrapped code")
	}
	if TypeOf(wrapped) != ErrorTypeSession {
		t.Errorf("TypeOf() = %q, want %q", TypeOf(wrapped), ErrorTypeSession)
	}
	if TypeOf(cause) != "" {
		t.Error("TypeOf on a plain error should be empty")
	}
}

func TestLogErrorIncludesContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelDebug)

	err := NewValidationError(ErrCodeEmptyAnswer, "answer is empty", nil).WithContext("session_id", "abc")
	logger.LogError(fmt.Errorf("submit: %w", err), "submit failed", "attempt", 1)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["error_code"] != ErrCodeEmptyAnswer {
		t.Errorf("error_code = %v", entry["error_code"])
	}
	if entry["session_id"] != "abc" {
		t.Errorf("session_id = %v", entry["session_id"])
	}
	if entry["attempt"] != float64(1) {
		t.Errorf("attempt = %v", entry["attempt"])
	}
}

func TestNewLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(level); err != nil {
			t.Errorf("New(%q) returned error: %v", level, err)
		}
	}
	if _, err := New("verbose"); err == nil {
		t.Error("expected error for invalid level")
	}
}
