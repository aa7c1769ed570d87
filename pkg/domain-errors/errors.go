// Package errors classifies failures raised while processing a filing.
//
// Every error that leaves a handler, the request tracker, or a store is either
// already a *Error carrying a Kind, or is classified by the dispatcher. The
// Kind decides what happens to the queue message: Retryable errors are
// requeued, everything else is acknowledged.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the discriminant the dispatcher switches on.
type Kind string

const (
	// KindFatal covers malformed payloads and unknown filing types. Retrying
	// cannot help; the filing moves to ERROR.
	KindFatal Kind = "fatal"

	// KindDataError is a business-data gap found during external
	// reconciliation. The tracker records it and the filing carries on.
	KindDataError Kind = "data_error"

	// KindRetryable covers transport failures, unacknowledged external calls
	// with budget left, and persistence failures.
	KindRetryable Kind = "retryable"

	// KindRetriesExceeded means the external registry never acknowledged
	// within the configured budget. Operator intervention is required.
	KindRetriesExceeded Kind = "retries_exceeded"
)

// Error is a classified processing failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. A nil err returns nil.
func Wrap(err error, kind Kind, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain,
// or fallback when nothing in the chain is classified.
func KindOf(err error, fallback Kind) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return fallback
}

// HasKind reports whether err is classified as kind.
func HasKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable reports whether the message carrying this failure should be
// redelivered.
func IsRetryable(err error) bool {
	return HasKind(err, KindRetryable)
}
