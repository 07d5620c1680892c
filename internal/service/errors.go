package service

import (
	"errors"
	"fmt"
)

// ErrorReason is the machine-readable failure code carried to the API envelope.
type ErrorReason string

const (
	ReasonNotFound         ErrorReason = "NOT_FOUND"
	ReasonAlreadyCheckedIn ErrorReason = "ALREADY_CHECKED_IN"
	ReasonNotCheckedIn     ErrorReason = "NOT_CHECKED_IN"
	ReasonForbiddenRole    ErrorReason = "FORBIDDEN_ROLE"
	ReasonDuplicateEmail   ErrorReason = "DUPLICATE_EMAIL"
	ReasonUnauthorized     ErrorReason = "UNAUTHORIZED"
	ReasonInternal         ErrorReason = "INTERNAL"
)

// Error is a typed domain failure. Cause is kept for logging only and is
// never rendered to clients.
type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(reason ErrorReason, msg string) *Error {
	return &Error{Reason: reason, Message: msg}
}

func internalError(msg string, cause error) *Error {
	return &Error{Reason: ReasonInternal, Message: msg, Cause: cause}
}

// IsReason reports whether err is a *Error with the given reason.
func IsReason(err error, reason ErrorReason) bool {
	var e *Error
	return errors.As(err, &e) && e.Reason == reason
}

// ReasonOf returns the reason of a *Error, or ReasonInternal for anything else.
func ReasonOf(err error) ErrorReason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonInternal
}
