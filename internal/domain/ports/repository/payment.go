package repository

import (
	"context"

	"storefront-billing/internal/domain/model"
)

// PaymentRepository is the port for the payment ledger.
type PaymentRepository interface {
	// Save inserts a new ledger row. The unique constraint on
	// transaction_id is the safety net behind the replay check.
	Save(ctx context.Context, tx Tx, p *model.PaymentRecord) error
	// FindByTransactionID returns the row for a processor transaction id,
	// domain.ErrNotFound if the id has never been seen.
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.PaymentRecord, error)
	// Update rewrites status/retry bookkeeping on an existing row.
	Update(ctx context.Context, tx Tx, p *model.PaymentRecord) error
}
