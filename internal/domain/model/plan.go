package model

import (
	"time"

	"storefront-billing/internal/domain"
)

// Plan is the monthly access plan the payment processor charges for.
// The reconciler checks every completed charge against Price exactly.
type Plan struct {
	ID           string
	Name         string
	Price        int64 // minor units
	Currency     string
	DurationDays int
	CreatedAt    time.Time
}

func NewPlan(id, name string, price int64, currency string, durationDays int) (*Plan, error) {
	if id == "" || name == "" || price <= 0 || currency == "" || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:           id,
		Name:         name,
		Price:        price,
		Currency:     currency,
		DurationDays: durationDays,
		CreatedAt:    time.Now(),
	}, nil
}
