package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/oklog/ulid/v2"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/repository"
)

const (
	rateLimitWindow      = 60 * time.Second
	rateLimitMaxAttempts = 5
)

// RateLimiter bounds validation/redemption attempts per actor over a
// sliding 60-second window, counting ValidationAttempt rows. It is an
// abuse deterrent, not a hard security boundary: the check-then-record
// gap means two fast concurrent requests can both slip through on the
// last slot, and that is accepted.
type RateLimiter struct {
	attempts repository.ValidationAttemptRepository
	now      func() time.Time
}

func NewRateLimiter(attempts repository.ValidationAttemptRepository) *RateLimiter {
	return &RateLimiter{attempts: attempts, now: time.Now}
}

// CheckLimit reports whether the actor may proceed, how many attempts
// remain, and how many seconds until the oldest in-window attempt falls
// out of the window.
func (r *RateLimiter) CheckLimit(ctx context.Context, actorID string, actorType model.ActorType) (allowed bool, attemptsRemaining int, resetInSeconds int, err error) {
	now := r.now()
	since := now.Add(-rateLimitWindow)

	count, err := r.attempts.CountSince(ctx, nil, actorID, actorType, since)
	if err != nil {
		return false, 0, 0, err
	}

	remaining := rateLimitMaxAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	resetIn := 0
	if count > 0 {
		oldest, err := r.attempts.OldestSince(ctx, nil, actorID, actorType, since)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return false, 0, 0, err
		}
		if err == nil {
			resetIn = int(math.Ceil(oldest.Add(rateLimitWindow).Sub(now).Seconds()))
			if resetIn < 0 {
				resetIn = 0
			}
		}
	}

	return count < rateLimitMaxAttempts, remaining, resetIn, nil
}

// RecordAttempt persists one attempt outcome. Called exactly once per
// proceeding validation or redemption call; rejected (rate-limited) calls
// are deliberately not recorded so they do not inflate the next window.
func (r *RateLimiter) RecordAttempt(ctx context.Context, actorID string, actorType model.ActorType, code string, outcome model.AttemptOutcome) error {
	return r.attempts.Insert(ctx, nil, &model.ValidationAttempt{
		ID:        ulid.Make().String(),
		ActorID:   actorID,
		ActorType: actorType,
		Code:      code,
		Outcome:   outcome,
		CreatedAt: r.now(),
	})
}
