package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) repository.PaymentRepository {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, transaction_id, subscriber_id, subscription_id, amount, currency, status, retry_count, next_retry_at, raw_payload, created_at, updated_at`

// Save inserts a new ledger row. transaction_id carries a unique
// constraint, so a replay that slips past the in-tx check still fails here
// instead of double-crediting.
func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.TransactionID, p.SubscriberID, p.SubscriptionID, p.Amount,
		p.Currency, p.Status, p.RetryCount, p.NextRetryAt, p.RawPayload,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.PaymentRecord, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"

	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return nil, err
	}

	p := new(model.PaymentRecord)
	err = row.Scan(
		&p.ID, &p.TransactionID, &p.SubscriberID, &p.SubscriptionID, &p.Amount,
		&p.Currency, &p.Status, &p.RetryCount, &p.NextRetryAt, &p.RawPayload,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) Update(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	const q = `
UPDATE payments
   SET status = $2, retry_count = $3, next_retry_at = $4, updated_at = $5
 WHERE id = $1;
`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Status, p.RetryCount, p.NextRetryAt, p.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
