package model

import (
	"time"

	"storefront-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// RedemptionPeriod is the access window one redeemed code buys.
const RedemptionPeriod = 30 * 24 * time.Hour

// Subscription is a subscriber's billing state. Exactly one row exists per
// subscriber; it is created lazily with a trial window on first access.
type Subscription struct {
	ID                 string
	OwnerID            string
	Status             SubscriptionStatus
	TrialEndsAt        *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	AutoRenew          bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewTrialSubscription creates the lazily-initialized default row.
func NewTrialSubscription(id, ownerID string, trialDays int, now time.Time) (*Subscription, error) {
	if id == "" || ownerID == "" || trialDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	trialEnd := now.Add(time.Duration(trialDays) * 24 * time.Hour)
	return &Subscription{
		ID:          id,
		OwnerID:     ownerID,
		Status:      SubscriptionStatusTrial,
		TrialEndsAt: &trialEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyRedemption credits one redeemed code. An active subscription is
// extended from its current period end so early renewal never loses paid
// time; trial/expired/cancelled subscriptions get a fresh window from now.
func (s *Subscription) ApplyRedemption(now time.Time) {
	if s.Status == SubscriptionStatusActive && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.After(now) {
		end := s.CurrentPeriodEnd.Add(RedemptionPeriod)
		s.CurrentPeriodEnd = &end
	} else {
		start := now
		end := now.Add(RedemptionPeriod)
		s.Status = SubscriptionStatusActive
		s.CurrentPeriodStart = &start
		s.CurrentPeriodEnd = &end
	}
	s.UpdatedAt = now
}

// ApplyPayment activates one processor-billed period starting now.
func (s *Subscription) ApplyPayment(now time.Time) {
	start := now
	end := now.AddDate(0, 1, 0)
	s.Status = SubscriptionStatusActive
	s.CurrentPeriodStart = &start
	s.CurrentPeriodEnd = &end
	s.AutoRenew = true
	s.UpdatedAt = now
}
