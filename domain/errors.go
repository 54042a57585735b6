package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a referenced medicine, batch or sale id that
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock signals that a reservation asked for more
	// than the batch currently holds, or that the batch has expired.
	ErrInsufficientStock = errors.New("insufficient stock or batch expired")

	// ErrEmptyCart signals finalize called with no lines.
	ErrEmptyCart = errors.New("cart is empty")
)

// ValidationError reports malformed input before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a failed storage operation. Any occurrence
// inside a finalize rolls the whole unit of work back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SaleError identifies which cart line made a finalize abort.
type SaleError struct {
	FailingLine int
	BatchID     int64
	Err         error
}

func (e *SaleError) Error() string {
	return fmt.Sprintf("sale aborted at line %d (batch %d): %v", e.FailingLine, e.BatchID, e.Err)
}

func (e *SaleError) Unwrap() error {
	return e.Err
}
