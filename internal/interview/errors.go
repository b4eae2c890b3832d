package interview

import (
	"careercoach/internal/errors"
)

// Sentinels for errors.Is; returned errors carry the same codes with their
// own messages and causes.
var (
	ErrMissingResume         = &errors.AppError{Code: errors.ErrCodeMissingResume}
	ErrQuestionFetch         = &errors.AppError{Code: errors.ErrCodeQuestionFetch}
	ErrCritique              = &errors.AppError{Code: errors.ErrCodeCritique}
	ErrEmptyAnswer           = &errors.AppError{Code: errors.ErrCodeEmptyAnswer}
	ErrCapabilityUnavailable = &errors.AppError{Code: errors.ErrCodeCapabilityUnavailable}
	ErrBusy                  = &errors.AppError{Code: errors.ErrCodeSessionBusy}
	ErrInvalidTransition     = &errors.AppError{Code: errors.ErrCodeInvalidTransition}
	ErrClosed                = &errors.AppError{Code: errors.ErrCodeSessionClosed}
)

func missingResume(cause error) error {
	return errors.NewSessionError(errors.ErrCodeMissingResume,
		"upload a résumé before starting an interview", cause)
}

func questionFetchFailed(cause error) error {
	return errors.NewAIError(errors.ErrCodeQuestionFetch,
		"could not generate an interview question", cause)
}

func critiqueFailed(cause error) error {
	return errors.NewAIError(errors.ErrCodeCritique,
		"could not get feedback for the answer", cause)
}

func emptyAnswer() error {
	return errors.NewValidationError(errors.ErrCodeEmptyAnswer, "answer is empty", nil)
}

func capabilityUnavailable(what string, cause error) error {
	return errors.NewCapabilityError(errors.ErrCodeCapabilityUnavailable,
		what+" is unavailable", cause).WithContext("capability", what)
}

func busy() error {
	return errors.NewSessionError(errors.ErrCodeSessionBusy,
		"another request for this session is in progress", nil)
}

func invalidTransition(action string, from Status) error {
	return errors.NewSessionError(errors.ErrCodeInvalidTransition,
		"cannot "+action+" while "+string(from), nil).
		WithContext("status", string(from))
}

func closed() error {
	return errors.NewSessionError(errors.ErrCodeSessionClosed, "session has been closed", nil)
}
