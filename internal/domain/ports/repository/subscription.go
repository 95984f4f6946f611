package repository

import (
	"context"

	"storefront-billing/internal/domain/model"
)

// SubscriptionRepository is the port for per-subscriber billing state.
type SubscriptionRepository interface {
	// Save upserts the subscriber's single row.
	Save(ctx context.Context, tx Tx, sub *model.Subscription) error
	// FindByOwner returns the subscriber's row, domain.ErrNotFound if none.
	FindByOwner(ctx context.Context, tx Tx, ownerID string) (*model.Subscription, error)
}
