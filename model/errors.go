// model/errors.go
package model

import "errors"

// Ledger error taxonomy. Callers distinguish retryable conflicts from
// terminal failures with errors.Is.
var (
	// ErrInsufficientStock: reserve asked for more than is available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvariantViolation: a counter update would break 0 <= available <= total.
	// Indicates a lifecycle bug upstream, never user input. Logged, never
	// silently corrected.
	ErrInvariantViolation = errors.New("inventory invariant violation")

	// ErrConflict: a concurrent writer won the race on the same record.
	// Retryable.
	ErrConflict = errors.New("concurrent update conflict")

	ErrNotFound = errors.New("record not found")
)
