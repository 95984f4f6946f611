package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.CodeRequestRepository = (*codeRequestRepo)(nil)

type codeRequestRepo struct {
	pool *pgxpool.Pool
}

func NewCodeRequestRepo(pool *pgxpool.Pool) repository.CodeRequestRepository {
	return &codeRequestRepo{pool: pool}
}

const codeRequestColumns = `id, chat_id, client_id, seller_id, code, status, payment_method, notes, created_at, issued_at, expires_at, redeemed_at, redeemed_by`

func (r *codeRequestRepo) Save(ctx context.Context, tx repository.Tx, req *model.CodeRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	const q = `
INSERT INTO code_requests (id, chat_id, client_id, seller_id, code, status, payment_method, notes, created_at, issued_at, expires_at, redeemed_at, redeemed_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
  code = EXCLUDED.code,
  status = EXCLUDED.status,
  payment_method = EXCLUDED.payment_method,
  notes = EXCLUDED.notes,
  issued_at = EXCLUDED.issued_at,
  expires_at = EXCLUDED.expires_at,
  redeemed_at = EXCLUDED.redeemed_at,
  redeemed_by = EXCLUDED.redeemed_by;
`
	_, err := execSQL(ctx, r.pool, tx, q,
		req.ID, req.ChatID, req.ClientID, req.SellerID, req.Code, req.Status,
		req.PaymentMethod, req.Notes, req.CreatedAt, req.IssuedAt, req.ExpiresAt,
		req.RedeemedAt, req.RedeemedBy,
	)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *codeRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CodeRequest, error) {
	const q = `SELECT ` + codeRequestColumns + ` FROM code_requests WHERE id = $1;`
	return r.scanOne(ctx, tx, q, id)
}

func (r *codeRequestRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.CodeRequest, error) {
	const q = `SELECT ` + codeRequestColumns + ` FROM code_requests WHERE code = $1;`
	return r.scanOne(ctx, tx, q, code)
}

func (r *codeRequestRepo) CodeExists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM code_requests WHERE code = $1 AND status <> 'pending');`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

// MarkUsed is the race arbiter: the status guard means only the first
// concurrent redemption affects a row, everyone else gets false.
func (r *codeRequestRepo) MarkUsed(ctx context.Context, tx repository.Tx, id, redeemedBy string, at time.Time) (bool, error) {
	const q = `
UPDATE code_requests
   SET status = 'used', redeemed_by = $2, redeemed_at = $3
 WHERE id = $1 AND status = 'issued';
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, redeemedBy, at)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *codeRequestRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.CodeRequest, error) {
	const q = `
UPDATE code_requests
   SET status = 'expired'
 WHERE status = 'issued' AND expires_at < $1
RETURNING ` + codeRequestColumns + `;`
	rows, err := queryRows(ctx, r.pool, tx, q, now)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.CodeRequest
	for rows.Next() {
		req := new(model.CodeRequest)
		if err := scanCodeRequest(rows, req); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, req)
	}
	return out, nil
}

func (r *codeRequestRepo) scanOne(ctx context.Context, tx repository.Tx, q string, arg interface{}) (*model.CodeRequest, error) {
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	req := new(model.CodeRequest)
	if err := scanCodeRequest(row, req); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return req, nil
}

func scanCodeRequest(row pgx.Row, req *model.CodeRequest) error {
	return row.Scan(
		&req.ID, &req.ChatID, &req.ClientID, &req.SellerID, &req.Code, &req.Status,
		&req.PaymentMethod, &req.Notes, &req.CreatedAt, &req.IssuedAt, &req.ExpiresAt,
		&req.RedeemedAt, &req.RedeemedBy,
	)
}
