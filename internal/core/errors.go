package core

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyText       = errors.New("empty description")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrNegativeIncome  = errors.New("income amount must not be negative")
	ErrUnknownCategory = errors.New("unknown category")
)

// ValidationError reports input rejected before it reaches the store.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Hint returns the message shown next to the form.
func (e *ValidationError) Hint() string {
	switch {
	case errors.Is(e.Err, ErrEmptyText):
		return "Please enter a valid description."
	case errors.Is(e.Err, ErrNegativeIncome):
		return "Income amounts cannot be negative."
	case errors.Is(e.Err, ErrInvalidAmount):
		return "Please enter a valid number for the amount."
	case errors.Is(e.Err, ErrEmptyCategory), errors.Is(e.Err, ErrUnknownCategory):
		return "Please select a category."
	case errors.Is(e.Err, ErrInvalidType):
		return "Please choose income or expense."
	default:
		return "Please check the form and try again."
	}
}

// NotFoundError reports a record id that is no longer in the store.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %d not found", e.ID)
}

// PersistenceError reports a failed read or write of the durable slot.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
