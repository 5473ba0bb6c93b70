package apperrors

import (
	"errors"
	"fmt"
)

// Error is a classified failure. The gateway client and session manager
// always return *Error so callers can branch on Kind without string matching.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status code when the failure came from a response,
	// zero otherwise.
	Status int

	cause error
}

// New creates a classified error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error that retains the underlying cause
// for errors.Is/errors.As inspection.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithStatus returns a copy of the error carrying the HTTP status code.
func (e *Error) WithStatus(status int) *Error {
	clone := *e
	clone.Status = status
	return &clone
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf extracts the Kind from an error chain. Untyped errors fall back
// to heuristic classification, nil errors report KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Classify(err)
}
