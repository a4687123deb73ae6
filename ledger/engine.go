/*
engine.go - Payment application engine

PURPOSE:
  Validates and applies a single payment to a sale: writes the payment,
  decrements the sale's balance, and completes the sale when the
  balance reaches zero. The whole sequence is one atomic unit.

ALGORITHM (all steps succeed or none do):
  1. Re-read the sale's balance inside the transaction. Two concurrent
     payments against the same sale must not both validate against a
     stale balance; the store serializes them.
  2. Reject if the sale is cancelled, balance <= 0, or amount > balance.
  3. Insert the immutable payment row.
  4. Decrement the balance by the amount.
  5. If the new balance is <= 0, set status to completed and balance to
     exactly 0. The clamp exists only at this terminal step; the
     overpayment check never clamps.
  6. Commit. Any failure discards everything.

IDEMPOTENCY:
  The engine does not deduplicate retried submissions. A caller that
  retries a StorageFailure must carry its own idempotency key.

SEE ALSO:
  - store.go: TxStore contract the atomicity rests on
  - errors.go: What each rejection returns
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine applies payments against sales. Safe for concurrent use;
// per-sale serialization is delegated to the TxStore.
type Engine struct {
	store    TxStore
	activity ActivityLogger
	logger   *zap.Logger
}

// NewEngine creates a payment engine. activity may be nil to disable
// notifications; logger may be nil for a no-op logger.
func NewEngine(store TxStore, activity ActivityLogger, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, activity: activity, logger: logger}
}

// ApplyPaymentInput carries the already-typed values for one payment.
// HTTP-level parsing and format validation are the caller's problem;
// the semantic checks below are not.
type ApplyPaymentInput struct {
	SaleID          SaleID
	Amount          decimal.Decimal
	Method          PaymentMethod
	ReferenceNumber string
	PaymentDate     time.Time
	RecordedBy      UserID
	Notes           string
}

// ApplyPayment runs the five-step algorithm above. On success exactly
// one new Payment exists and the balance invariant holds; on failure
// the store is untouched and the error identifies the failed
// precondition.
func (e *Engine) ApplyPayment(ctx context.Context, in ApplyPaymentInput) (*Payment, error) {
	if !in.Method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, in.Method)
	}
	if !in.Amount.IsPositive() {
		return nil, &InvalidAmountError{SaleID: in.SaleID, Requested: in.Amount}
	}

	var applied Payment
	err := e.store.WithTx(ctx, func(s Store) error {
		sale, err := s.GetSale(ctx, in.SaleID)
		if err != nil {
			return err
		}
		if sale.Status == SaleCancelled {
			return fmt.Errorf("sale %s: %w", sale.ID, ErrSaleCancelled)
		}
		if !sale.Balance.IsPositive() || in.Amount.GreaterThan(sale.Balance) {
			return &InvalidAmountError{SaleID: sale.ID, Requested: in.Amount, Balance: sale.Balance}
		}

		applied = Payment{
			ID:              PaymentID(uuid.NewString()),
			SaleID:          sale.ID,
			Amount:          in.Amount,
			Method:          in.Method,
			ReferenceNumber: in.ReferenceNumber,
			PaymentDate:     in.PaymentDate,
			RecordedBy:      in.RecordedBy,
			Notes:           in.Notes,
			CreatedAt:       time.Now().UTC(),
		}
		if err := s.InsertPayment(ctx, applied); err != nil {
			return err
		}

		balance := sale.Balance.Sub(in.Amount)
		status := sale.Status
		if !balance.IsPositive() {
			// Exact zero in the normal case; <= 0 guards rounding.
			balance = decimal.Zero
			status = SaleCompleted
		}
		return s.UpdateSaleBalance(ctx, sale.ID, balance, status)
	})
	if err != nil {
		return nil, classify(err)
	}

	e.logger.Info("payment applied",
		zap.String("sale_id", string(in.SaleID)),
		zap.String("payment_id", string(applied.ID)),
		zap.String("amount", in.Amount.String()),
		zap.String("method", string(in.Method)),
	)
	e.notify(ctx, in)
	return &applied, nil
}

// notify delivers the fire-and-forget activity line. Failures are
// logged, never propagated: the payment is already committed.
func (e *Engine) notify(ctx context.Context, in ApplyPaymentInput) {
	if e.activity == nil {
		return
	}
	details := fmt.Sprintf("Recorded payment of %s against sale %s",
		in.Amount.StringFixed(2), in.SaleID)
	if err := e.activity.LogActivity(ctx, in.RecordedBy, "Record Payment", details); err != nil {
		e.logger.Warn("activity log notification failed",
			zap.String("sale_id", string(in.SaleID)),
			zap.Error(err),
		)
	}
}

// classify keeps the domain taxonomy intact and folds everything else
// (driver errors, commit timeouts) into ErrStorageFailure.
func classify(err error) error {
	if IsClientError(err) || IsNotFound(err) || IsRetryable(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}
