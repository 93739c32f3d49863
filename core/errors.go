package core

import (
	"fmt"

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

// StoreError reports a failed Record Store operation.
// Inconsistent is set when part of a multi-step write was committed: the caller should reload.
type StoreError struct {
	Op           string
	Err          error
	Inconsistent bool
}

func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

func NewInconsistentStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err, Inconsistent: true}
}

func (err StoreError) Error() string {
	msg := fmt.Sprintf("store %s: %v", err.Op, err.Err)
	if err.Inconsistent {
		msg += " (reload recommended)"
	}
	return msg
}

func (err StoreError) Unwrap() error { return err.Err }

// IsInconsistent tells whether err left the store partially written.
func IsInconsistent(err error) bool {
	sErr, ok := errors.Cause(err).(*StoreError)
	return ok && sErr.Inconsistent
}

// PreconditionError is a benign condition preventing an export (e.g. nothing to export).
type PreconditionError struct {
	Message string
}

func NewPreconditionError(msg string) error {
	return &PreconditionError{Message: msg}
}

func (err PreconditionError) Error() string {
	return err.Message
}

func IsPrecondition(err error) bool {
	_, ok := errors.Cause(err).(*PreconditionError)
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
