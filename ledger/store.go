/*
store.go - Persistence interfaces for sales and payments

PURPOSE:
  Defines the interface between the payment engine and the database.
  Different implementations can use SQLite, PostgreSQL, or in-memory
  storage.

APPEND-ONLY CONTRACT:
  Payments are append-only:
  - InsertPayment(): Single payment write
  - NO update or delete methods exist for payments
  Corrections, if ever supported, are new compensating records.

ATOMICITY:
  ApplyPayment must observe and mutate the sale inside ONE transaction.
  TxStore.WithTx provides that: the function receives a transactional
  Store view; an error rolls everything back, nil commits. A timed-out
  commit is all-or-nothing - no concurrent reader ever observes a
  payment row without the matching balance decrement.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - store/memory: In-memory for testing

SEE ALSO:
  - engine.go: The only writer of sale balance/status
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Sale row access and payment appends
// =============================================================================

// Store is the minimal surface the payment engine needs. When obtained
// through TxStore.WithTx, every call runs inside the same transaction
// and GetSale reflects uncommitted writes of that transaction.
type Store interface {
	// GetSale returns the sale or ErrSaleNotFound.
	GetSale(ctx context.Context, id SaleID) (*Sale, error)

	// InsertPayment appends an immutable payment row.
	InsertPayment(ctx context.Context, p Payment) error

	// UpdateSaleBalance sets the sale's balance and status together.
	// This is the ONLY mutation of a sale this core performs.
	UpdateSaleBalance(ctx context.Context, id SaleID, balance decimal.Decimal, status SaleStatus) error
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction holding a write lock on
	// any sale row fn touches. If fn returns an error, the transaction
	// is rolled back; otherwise it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// ACTIVITY LOG - Fire-and-forget notification after successful writes
// =============================================================================

// ActivityLogger records a human-readable audit line. Delivery failure
// must never roll back the payment that triggered it; the engine logs
// and moves on.
type ActivityLogger interface {
	LogActivity(ctx context.Context, userID UserID, action, details string) error
}
