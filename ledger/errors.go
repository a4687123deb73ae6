/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify with errors.Is / errors.As; the HTTP layer maps
  each class to a status code.

ERROR CATEGORIES:
  1. Terminal client errors - invalid amount/method, cancelled sale,
     policy denial. Never retried.
  2. Not-found errors - missing sale.
  3. Storage failures - transient infrastructure faults; the only class
     eligible for caller-driven retry (and only when the caller can
     guarantee the retry is not a duplicate submission).

SEE ALSO:
  - engine.go: Produces these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSaleNotFound is returned when the referenced sale doesn't exist.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrSaleCancelled is returned when a payment targets a cancelled sale.
	// A cancelled sale never accepts payments, regardless of amount.
	ErrSaleCancelled = errors.New("sale is cancelled")

	// ErrInvalidAmount is returned for a non-positive amount or an amount
	// exceeding the sale's outstanding balance. Overpayment is rejected,
	// not clamped: silent clamping would hide data-entry mistakes.
	ErrInvalidAmount = errors.New("invalid payment amount")

	// ErrInvalidMethod is returned for a payment method outside the
	// enumerated set.
	ErrInvalidMethod = errors.New("invalid payment method")

	// ErrForbidden is returned when the policy gate denies a write.
	ErrForbidden = errors.New("forbidden")

	// ErrStorageFailure wraps transient persistence faults. The
	// transaction contract guarantees a failed attempt leaves no trace.
	ErrStorageFailure = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidAmountError reports why an amount was rejected against a sale.
type InvalidAmountError struct {
	SaleID    SaleID
	Requested decimal.Decimal
	Balance   decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid payment amount for sale %s: requested %v, balance %v",
		e.SaleID, e.Requested, e.Balance)
}

func (e *InvalidAmountError) Unwrap() error {
	return ErrInvalidAmount
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
// Only storage failures qualify; everything else is terminal.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}

// IsClientError returns true if the error is due to invalid caller input
// or state, and must be surfaced to the end user without retry.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidMethod) ||
		errors.Is(err, ErrSaleCancelled) ||
		errors.Is(err, ErrForbidden)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSaleNotFound)
}
