package core

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports a missing entity, or one the caller may not see.
type NotFoundError struct {
	msg string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{msg: msg}
}

func (err *NotFoundError) Error() string { return err.msg }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	msg string
}

func NewConflictError(msg string) error {
	return &ConflictError{msg: msg}
}

func (err *ConflictError) Error() string { return err.msg }

// AuthError reports a missing or invalid identity.
type AuthError struct {
	msg string
}

func NewAuthError(msg string) error {
	return &AuthError{msg: msg}
}

func (err *AuthError) Error() string { return err.msg }

type RateLimitError struct {
	Limit   int
	ResetAt time.Time
}

func (err *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit of %d calls exceeded, try again after %s", err.Limit, err.ResetAt.UTC().Format(time.RFC3339))
}

// StoreError wraps a persistence failure. errors.Cause stops here so callers classify it as a store failure
// instead of seeing the driver error.
type StoreError struct {
	op  string
	err error
}

func NewStoreError(err error, op string) error {
	if err == nil {
		return nil
	}
	return &StoreError{op: op, err: errors.WithStack(err)}
}

func (err *StoreError) Error() string { return err.op + ": " + err.err.Error() }
func (err *StoreError) Unwrap() error { return err.err }

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
