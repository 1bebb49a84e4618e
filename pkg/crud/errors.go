package crud

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no record matches the requested id.
	ErrNotFound = errors.New("record not found")

	// ErrSomethingWentWrong is the generic failure surfaced to clients when
	// a persistence call fails. The underlying error is logged, never sent.
	ErrSomethingWentWrong = errors.New("something went wrong")

	// ErrUnknownField is returned when a condition, sort or filter names a
	// key the descriptor does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrSyncAborted marks a denormalization sync whose transaction was
	// rolled back.
	ErrSyncAborted = errors.New("sync aborted")
)

// ValidationError carries schema-level field messages. It maps to 412.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// NewValidationError builds a ValidationError from one or more messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// RejectedError is a domain rejection raised by a pre-write check, such as
// a duplicate name, a missing parent or a delete guard.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// Reject builds a RejectedError.
func Reject(message string) *RejectedError {
	return &RejectedError{Message: message}
}

// IsRejected reports whether err is a RejectedError or a ValidationError,
// both of which are terminal before any write happens.
func IsRejected(err error) bool {
	var rejected *RejectedError
	var invalid *ValidationError
	return errors.As(err, &rejected) || errors.As(err, &invalid)
}
