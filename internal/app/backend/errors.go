package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies backend failures.
type Kind string

const (
	// AuthError: the provider rejected credentials or a sign-up.
	AuthError Kind = "auth"
	// StorageError: a record call failed.
	StorageError Kind = "storage"
	// ProfileStorageError: a profile insert/update failed after a
	// successful auth step.
	ProfileStorageError Kind = "profile_storage"
	// NetworkTimeoutError: a call lost its race against a deadline.
	NetworkTimeoutError Kind = "timeout"
	// UnknownError: anything else.
	UnknownError Kind = "unknown"
)

// Error is the error type returned by backend implementations. Message is
// the provider's text and is safe to show to users.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status from the provider, 0 when not applicable
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and a user-facing message to err. Deadline errors are
// always classified as NetworkTimeoutError.
func Wrap(kind Kind, msg string, err error) *Error {
	if isTimeout(err) {
		kind = NetworkTimeoutError
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Relabel returns err re-classified as kind, keeping its message. Timeouts
// keep their kind.
func Relabel(err error, kind Kind) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		if be.Kind == NetworkTimeoutError {
			return err
		}
		cp := *be
		cp.Kind = kind
		return &cp
	}
	return Wrap(kind, err.Error(), err)
}

// KindOf classifies any error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	if isTimeout(err) {
		return NetworkTimeoutError
	}
	return UnknownError
}

// Message returns the text to put in a user notification.
func Message(err error) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if isTimeout(err) {
		return "Request timeout"
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
