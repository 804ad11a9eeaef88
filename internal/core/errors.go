package core

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to react to it
// (HTTP status mapping, CLI exit codes).
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindStorageRead   Kind = "storage_read"
	KindStorageWrite  Kind = "storage_write"
	KindConfiguration Kind = "configuration"
	KindUnauthorized  Kind = "unauthorized"
	KindInternal      Kind = "internal"
)

// Error is a classified error. Two *Error values match under errors.Is
// when the target carries only a Kind, so the Err* sentinels below work
// as kind checks.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStorageRead   = &Error{Kind: KindStorageRead}
	ErrStorageWrite  = &Error{Kind: KindStorageWrite}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
)

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil && e.Message != e.Err.Error():
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

// NewError builds a classified error.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Invalid marks err as a validation failure keeping it matchable.
func Invalid(err error) *Error {
	return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
}

// NotFound reports a missing record.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// StorageRead wraps a backend read failure.
func StorageRead(err error) *Error {
	return &Error{Kind: KindStorageRead, Message: "read ledger", Err: err}
}

// StorageWrite wraps a backend write failure.
func StorageWrite(err error) *Error {
	return &Error{Kind: KindStorageWrite, Message: "write ledger", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns a message safe to show to the operator.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return string(e.Kind)
	}
	return "internal error"
}
