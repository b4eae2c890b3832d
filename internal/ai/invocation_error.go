package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"
)

// CauseKind classifies why an invocation failed.
type CauseKind string

const (
	CauseInvalidInput      CauseKind = "invalid_input"
	CauseTransport         CauseKind = "transport"
	CauseCircuitOpen       CauseKind = "circuit_open"
	CauseCanceled          CauseKind = "canceled"
	CauseMalformedResponse CauseKind = "malformed_response"
	CauseSchemaViolation   CauseKind = "schema_violation"
)

// InvocationError is the only error returned by provider operations.
type InvocationError struct {
	Operation string
	Kind      CauseKind
	Cause     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("ai %s: %s: %v", e.Operation, e.Kind, e.Cause)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// Is matches another *InvocationError by kind, and by operation when the
// target names one.
func (e *InvocationError) Is(target error) bool {
	t, ok := target.(*InvocationError)
	if !ok {
		return false
	}
	if t.Operation != "" && t.Operation != e.Operation {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Sentinels for errors.Is checks on the kind alone.
var (
	ErrInvalidInput      = &InvocationError{Kind: CauseInvalidInput}
	ErrTransport         = &InvocationError{Kind: CauseTransport}
	ErrCircuitOpen       = &InvocationError{Kind: CauseCircuitOpen}
	ErrCanceled          = &InvocationError{Kind: CauseCanceled}
	ErrMalformedResponse = &InvocationError{Kind: CauseMalformedResponse}
	ErrSchemaViolation   = &InvocationError{Kind: CauseSchemaViolation}
)

func newInvocationError(operation string, kind CauseKind, cause error) *InvocationError {
	return &InvocationError{Operation: operation, Kind: kind, Cause: cause}
}

// transportError classifies an error from the model call itself.
func transportError(operation string, err error) *InvocationError {
	switch {
	case errors.Is(err, context.Canceled):
		return newInvocationError(operation, CauseCanceled, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return newInvocationError(operation, CauseCircuitOpen, err)
	default:
		return newInvocationError(operation, CauseTransport, err)
	}
}

// AsInvocationError returns the *InvocationError in err's chain.
func AsInvocationError(err error) (*InvocationError, bool) {
	var invErr *InvocationError
	ok := errors.As(err, &invErr)
	return invErr, ok
}
