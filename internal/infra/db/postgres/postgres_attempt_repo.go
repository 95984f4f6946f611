package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/repository"
)

var _ repository.ValidationAttemptRepository = (*attemptRepo)(nil)

type attemptRepo struct{ pool *pgxpool.Pool }

func NewValidationAttemptRepo(pool *pgxpool.Pool) repository.ValidationAttemptRepository {
	return &attemptRepo{pool: pool}
}

func (r *attemptRepo) Insert(ctx context.Context, tx repository.Tx, a *model.ValidationAttempt) error {
	const q = `
INSERT INTO validation_attempts (id, actor_id, actor_type, code, outcome, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.ActorID, a.ActorType, a.Code, a.Outcome, a.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *attemptRepo) CountSince(ctx context.Context, tx repository.Tx, actorID string, actorType model.ActorType, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM validation_attempts WHERE actor_id = $1 AND actor_type = $2 AND created_at > $3;`
	row, err := pickRow(ctx, r.pool, tx, q, actorID, actorType, since)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *attemptRepo) OldestSince(ctx context.Context, tx repository.Tx, actorID string, actorType model.ActorType, since time.Time) (time.Time, error) {
	const q = `SELECT MIN(created_at) FROM validation_attempts WHERE actor_id = $1 AND actor_type = $2 AND created_at > $3;`
	row, err := pickRow(ctx, r.pool, tx, q, actorID, actorType, since)
	if err != nil {
		return time.Time{}, err
	}
	var oldest *time.Time
	if err := row.Scan(&oldest); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domain.ErrNotFound
		}
		return time.Time{}, domain.ErrReadDatabaseRow
	}
	if oldest == nil {
		return time.Time{}, domain.ErrNotFound
	}
	return *oldest, nil
}

func (r *attemptRepo) PruneBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM validation_attempts WHERE created_at < $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return tag.RowsAffected(), nil
}
