package apperr

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("an attempt of this type is already open")
	ErrWindowClosed       = errors.New("challenge window has closed")
	ErrExternalService    = errors.New("validation service unavailable")
	ErrValidationRejected = errors.New("evidence rejected")
	ErrExhaustedCatalog   = errors.New("no eligible challenge left")
	ErrInvalidInput       = errors.New("invalid input")
)

// RejectedError is returned for a well-formed Invalid verdict. The attempt
// stays open until WindowEndsAt, so the caller may resubmit.
type RejectedError struct {
	Reason       string
	WindowEndsAt time.Time
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("evidence rejected: %s", e.Reason)
}

func (e *RejectedError) Unwrap() error { return ErrValidationRejected }

// ExternalError wraps oracle and generator failures (timeouts, transport
// errors, responses outside the expected grammar).
type ExternalError struct {
	Provider string
	Err      error
}

func (e *ExternalError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("external service: %v", e.Err)
	}
	return fmt.Sprintf("external service %s: %v", e.Provider, e.Err)
}

func (e *ExternalError) Unwrap() []error { return []error{ErrExternalService, e.Err} }

func External(provider string, err error) error {
	return &ExternalError{Provider: provider, Err: err}
}

func NotFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}

func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
