package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyName         = errors.New("empty name")
	ErrNameTooLong       = errors.New("name too long")
	ErrInvalidTarget     = errors.New("target amount must be greater than zero")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrProtectedCategory = errors.New("category cannot be deleted")
	ErrInvalidDuration   = errors.New("invalid budget duration")

	// ErrNotFound is wrapped with the missing entity, e.g. "transaction 42: not found".
	ErrNotFound = errors.New("not found")

	// ErrServerFault marks a 5xx answer from the remote gateway.
	ErrServerFault = errors.New("server fault")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid builds a ValidationError for field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// TransportError is a failed exchange with the remote gateway: either the
// request never completed or the server answered with a non-2xx status.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport failure. Server faults
// count as transport failures.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te) || errors.Is(err, ErrServerFault)
}
