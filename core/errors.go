package core

import "github.com/pkg/errors"

// FieldError reports a rejected field in a submitted payload (registration,
// complaint, feedback), keyed by the field's JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a rejected input: a set of field errors, or a single
// top-level message when the problem is not tied to one field (duplicate
// feedback, bad credentials).
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

// NewShutdownError returns an error that the HTTP error handler escalates
// into a graceful server shutdown.
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
