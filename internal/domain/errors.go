package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Every business failure returned by the banking service wraps
// exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrConflict          = errors.New("conflict")
	ErrTimeout           = errors.New("timeout")
)

var ErrMessageAlreadyProcessed = errors.New("message already processed")

// Error pairs a kind with a message meant for the caller. Cause, when set,
// holds the underlying driver error and is never shown to callers.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func NewError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

var kindCodes = []struct {
	kind error
	code string
}{
	{ErrNotFound, "NOT_FOUND"},
	{ErrForbidden, "FORBIDDEN"},
	{ErrInvalidState, "INVALID_STATE"},
	{ErrInsufficientFunds, "INSUFFICIENT_FUNDS"},
	{ErrInvalidOperation, "INVALID_OPERATION"},
	{ErrConflict, "CONFLICT"},
	{ErrTimeout, "TIMEOUT"},
}

// KindOf returns the stable code for err, or "INTERNAL" when err carries no kind.
func KindOf(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "TIMEOUT"
	}
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			return kc.code
		}
	}
	return "INTERNAL"
}

func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if KindOf(err) == "INTERNAL" {
		return "internal server error"
	}
	return err.Error()
}
