package onboarding

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a domain failure. None of them are fatal: the session is
// left unchanged and the operation may be retried.
type Kind string

const (
	// KindValidation means the supplied value was rejected before mutation.
	KindValidation Kind = "validation"
	// KindNotFound means the session, applicant or recovery target is missing.
	KindNotFound Kind = "not_found"
	// KindPrecondition means the operation is not allowed in the current state.
	KindPrecondition Kind = "precondition"
	// KindRateLimited means recovery attempts were exhausted for the window.
	KindRateLimited Kind = "rate_limited"
	// KindConflict marks an email collision that redirected the flow.
	KindConflict Kind = "conflict"
)

// Error is a structured domain failure.
type Error struct {
	Kind    Kind
	Message string
	// Missing lists field labels for completion-gating failures.
	Missing []string
	// RetryAfter is set for rate-limit failures.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Validationf builds a KindValidation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Preconditionf builds a KindPrecondition error.
func Preconditionf(format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or "" if err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// AsError unwraps err into a domain error.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
