package storefront

import (
	"errors"
	"fmt"
)

// Kind classifies failures so workflows never inspect raw transport errors.
type Kind string

const (
	KindNetwork          Kind = "network"
	KindUnauthorized     Kind = "unauthorized"
	KindServerError      Kind = "server_error"
	KindNotFound         Kind = "not_found"
	KindValidationFailed Kind = "validation_failed"
	KindUnknown          Kind = "unknown"
)

// Error is the normalized error value surfaced by the gateway, the validators
// and the workflows. Status is the HTTP status when one was received.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("storefront: %s (status=%d): %s", e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("storefront: %s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by kind so errors.Is(err, &Error{Kind: KindNotFound})
// works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds a normalized error of kind.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// ValidationError builds a KindValidationFailed error.
func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidationFailed, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a normalized error from err. Anything that is not already
// normalized is reported as KindUnknown.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var target *Error
	if errors.As(err, &target) {
		return target
	}
	return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}

// IsKind reports whether err normalizes to kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
