// Package fault defines the failure taxonomy shared by the repository
// adapter and the orchestration service. Every error surfaced to a caller
// of the engine is classified into exactly one kind.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation marks bad input detected locally before any I/O.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindState marks an operation that is illegal against the trip's
	// current status.
	KindState Kind = "STATE_ERROR"
	// KindNetwork marks a connectivity-classified failure. The service
	// absorbs these into the offline queue instead of surfacing them.
	KindNetwork Kind = "NETWORK_ERROR"
	// KindRemote marks a genuine business failure returned by the remote
	// system, surfaced to the caller unchanged.
	KindRemote Kind = "REMOTE_ERROR"
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// From attaches a kind to an error, keeping its text as the message.
func From(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// New creates a classified error with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind of a classified error. Unclassified errors
// report KindRemote, the conservative choice: they are surfaced, never
// silently queued.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindRemote
}

// IsNetwork reports whether the error is connectivity-classified.
func IsNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}

// IsValidation reports whether the error is a local validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsState reports whether the error is an illegal-transition failure.
func IsState(err error) bool {
	return KindOf(err) == KindState
}
