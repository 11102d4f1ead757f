package engine

import (
	"errors"
	"fmt"
)

// Kind classifies a failed operation. Every engine operation returns either
// a success payload or exactly one typed failure; nothing is swallowed.
type Kind string

const (
	// KindUnauthenticated means no caller identity was supplied for an
	// operation that requires one. No network call is made.
	KindUnauthenticated Kind = "unauthenticated"
	// KindConflict is a business-rule rejection by the backend, e.g. the
	// (car, user) pair already holds a booking, or the booking is already
	// canceled.
	KindConflict Kind = "conflict"
	// KindValidation is a malformed input detected client-side before
	// dispatch. No network call is made.
	KindValidation Kind = "validation"
	// KindNetwork is a transport-level failure with no usable response.
	KindNetwork Kind = "network"
	// KindServer is a non-2xx response that matched no known business rule.
	KindServer Kind = "server"
)

// Error is the engine's failure type. Message is user-presentable; for
// conflicts it carries the backend's text verbatim.
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

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind of err, or KindServer for unrecognized errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
