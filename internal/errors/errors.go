package errors

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeAI         ErrorType = "ai"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeSession    ErrorType = "session"
	ErrorTypeCapability ErrorType = "capability"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *AppError with the same code. A target without
// a code matches on type alone.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return t.Type == e.Type
	}
	return t.Code == e.Code
}

// newAppError is an unexported helper to create AppError instances
func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewAIError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAI, code, message, cause)
}

func NewNetworkError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

func NewSessionError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeSession, code, message, cause)
}

func NewCapabilityError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeCapability, code, message, cause)
}

// Is and As re-export the standard library helpers so callers need a single
// errors import.
var (
	Is = errors.Is
	As = errors.As
)

// HasCode reports whether err wraps an *AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// TypeOf returns the ErrorType of the first *AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger writing JSON to stderr.
// Stdout is reserved for command output.
func NewLogger(level slog.Level) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a structured logger writing to w.
func NewLoggerTo(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(w, opts)
	logger := slog.New(handler)

	return &Logger{logger: logger}
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return NewLoggerTo(io.Discard, slog.LevelError+1)
}

// With returns a logger that always adds args.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// Slog exposes the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// LogError logs an application error with appropriate level and context
func (l *Logger) LogError(err error, message string, args ...any) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		logArgs := []any{
			"error_type", appErr.Type,
			"error_code", appErr.Code,
			"error_message", appErr.Message,
		}
		if appErr.Cause != nil {
			logArgs = append(logArgs, "cause", appErr.Cause.Error())
		}

		// Add context if available
		for key, value := range appErr.Context {
			logArgs = append(logArgs, key, value)
		}

		// Add additional args
		logArgs = append(logArgs, args...)

		l.logger.Error(message, logArgs...)
	} else {
		// Regular error
		logArgs := append([]any{"error", err.Error()}, args...)
		l.logger.Error(message, logArgs...)
	}
}

func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

// New creates a new logger instance
func New(level string) (*Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	return NewLogger(slogLevel), nil
}

// Common error codes
const (
	ErrCodeFileNotFound      = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable   = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat     = "INVALID_FORMAT"
	ErrCodeAIServiceFailed   = "AI_SERVICE_FAILED"
	ErrCodeAITimeout         = "AI_TIMEOUT"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeMissingAPIKey     = "MISSING_API_KEY"
	ErrCodeNetworkTimeout    = "NETWORK_TIMEOUT"
	ErrCodeBrokerUnavailable = "BROKER_UNAVAILABLE"
	ErrCodeInvalidConfig     = "INVALID_CONFIG"
	ErrCodeUnsupportedMedia  = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeStorageFailed     = "STORAGE_FAILED"
)

// Interview session error codes
const (
	ErrCodeMissingResume         = "MISSING_RESUME"
	ErrCodeQuestionFetch         = "QUESTION_FETCH_FAILED"
	ErrCodeCritique              = "CRITIQUE_FAILED"
	ErrCodeEmptyAnswer           = "EMPTY_ANSWER"
	ErrCodeCapabilityUnavailable = "CAPABILITY_UNAVAILABLE"
	ErrCodeSessionBusy           = "SESSION_BUSY"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeSessionClosed         = "SESSION_CLOSED"
)
