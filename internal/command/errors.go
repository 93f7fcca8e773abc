package command

import (
	"errors"
	"fmt"
)

// Kind classifies why a command was rejected.
type Kind string

const (
	KindValidation    Kind = "ValidationError"
	KindNoHandler     Kind = "NoHandlerError"
	KindRoomExistence Kind = "RoomExistenceError"
	KindRoomRequired  Kind = "RoomRequiredError"
	KindPrecondition  Kind = "PreconditionError"
	KindUnknownEvent  Kind = "UnknownEventError"
	KindAuthorization Kind = "AuthorizationError"
	KindHandler       Kind = "HandlerError"
	KindStore         Kind = "StoreError"
	KindCancelled     Kind = "CancelledError"
)

// ErrNotAuthorized is returned by preconditions and handlers when the actor
// failed an authorization check. It always surfaces without further detail.
var ErrNotAuthorized = errors.New("Not Authorized!")

// Error is a rejected command.
type Error struct {
	Kind    Kind
	Command string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a rejection, or "" if err is not one.
func KindOf(err error) Kind {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr.Kind
	}
	return ""
}

// IsKind reports whether err is a rejection of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// Internal reports whether the kind points at a configuration or programming
// fault rather than at the caller.
func (k Kind) Internal() bool {
	switch k {
	case KindNoHandler, KindUnknownEvent, KindStore:
		return true
	}
	return false
}

func newError(kind Kind, name string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Command: name, Message: fmt.Sprintf(format, args...), Err: err}
}

func validationError(name, reason string) *Error {
	return newError(KindValidation, name, nil, "Command validation Error during %q: %s", name, reason)
}

func cancelled(name string, err error) *Error {
	return newError(KindCancelled, name, err, "Command %q was not applied: %s", name, err.Error())
}

func notAuthorized(name string) *Error {
	return newError(KindAuthorization, name, ErrNotAuthorized, "%s", ErrNotAuthorized.Error())
}

// wrapUserError turns an error returned from domain code into a rejection.
// Rejections pass through untouched and ErrNotAuthorized is never detailed.
func wrapUserError(kind Kind, stage, name string, err error) *Error {
	var cmdErr *Error
	if errors.As(err, &cmdErr) {
		return cmdErr
	}
	if errors.Is(err, ErrNotAuthorized) {
		return notAuthorized(name)
	}
	return newError(kind, name, err, "%s Error during %q: %s", stage, name, err.Error())
}
