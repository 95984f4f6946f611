package repository

import (
	"context"
	"time"

	"storefront-billing/internal/domain/model"
)

// CodeRequestRepository is the port for the code store.
type CodeRequestRepository interface {
	// Save creates or updates a code request.
	Save(ctx context.Context, tx Tx, req *model.CodeRequest) error
	// FindByID looks up one request by its id.
	FindByID(ctx context.Context, tx Tx, id string) (*model.CodeRequest, error)
	// FindByCode looks up one request by its exact (canonical) code value.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.CodeRequest, error)
	// CodeExists reports whether a code value is already taken by any
	// non-pending request. Used by the issuance uniqueness retry loop.
	CodeExists(ctx context.Context, tx Tx, code string) (bool, error)
	// MarkUsed conditionally transitions issued -> used, stamping the
	// redeeming subscriber and time. Returns false when the guard matched
	// no row, i.e. a concurrent redemption already won.
	MarkUsed(ctx context.Context, tx Tx, id, redeemedBy string, at time.Time) (bool, error)
	// ExpireDue bulk-flips all issued requests past their deadline to
	// expired and returns the affected rows.
	ExpireDue(ctx context.Context, tx Tx, now time.Time) ([]*model.CodeRequest, error)
}
