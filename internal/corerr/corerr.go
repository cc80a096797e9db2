// Package corerr defines the error classification shared across the
// ingestion, retrieval, job queue, and graph subsystems. Callers branch on
// Kind, never on the concrete Go type, so a storage backend swap never
// leaks its own error types into caller logic.
package corerr

import (
	"errors"
	"fmt"
)

// Kind is a coarse classification of what went wrong.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindInvalid     Kind = "invalid"
	KindUnavailable Kind = "unavailable" // backend down, timed out, or rate-limited
	KindInternal    Kind = "internal"
)

// Error wraps an underlying cause with a Kind and a message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the Kind of err if it (or something it wraps) is a *Error,
// and KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func NotFound(message string) *Error           { return New(KindNotFound, message) }
func Conflict(message string) *Error           { return New(KindConflict, message) }
func Invalid(message string) *Error            { return New(KindInvalid, message) }
func Unavailable(message string, cause error) *Error {
	return Wrap(KindUnavailable, message, cause)
}
func Internal(message string, cause error) *Error {
	return Wrap(KindInternal, message, cause)
}
