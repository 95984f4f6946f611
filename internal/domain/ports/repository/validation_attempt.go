package repository

import (
	"context"
	"time"

	"storefront-billing/internal/domain/model"
)

// ValidationAttemptRepository is the port for the rate-limit audit trail.
type ValidationAttemptRepository interface {
	// Insert records one attempt. Rows are never updated.
	Insert(ctx context.Context, tx Tx, attempt *model.ValidationAttempt) error
	// CountSince counts the actor's attempts newer than `since`.
	CountSince(ctx context.Context, tx Tx, actorID string, actorType model.ActorType, since time.Time) (int, error)
	// OldestSince returns the actor's oldest in-window attempt time, or
	// domain.ErrNotFound when the window is empty.
	OldestSince(ctx context.Context, tx Tx, actorID string, actorType model.ActorType, since time.Time) (time.Time, error)
	// PruneBefore deletes attempts older than the cutoff, returning the count.
	PruneBefore(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
