package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/repository"
	"storefront-billing/internal/infra/metrics"
)

// redeemTxTimeout bounds the redemption transaction; on timeout the caller
// sees a generic retryable failure and must not assume partial success.
const redeemTxTimeout = 5 * time.Second

// RedemptionUseCase validates and redeems issued codes. All synchronization
// is pushed onto the database: the conditional issued->used update is the
// lock that makes redemption at-most-once.
type RedemptionUseCase struct {
	codes   repository.CodeRequestRepository
	subs    repository.SubscriptionRepository
	limiter *RateLimiter
	tm      repository.TransactionManager
	log     *zerolog.Logger
	now     func() time.Time
}

func NewRedemptionUseCase(
	codes repository.CodeRequestRepository,
	subs repository.SubscriptionRepository,
	limiter *RateLimiter,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *RedemptionUseCase {
	l := logger.With().Str("component", "RedemptionUseCase").Logger()
	return &RedemptionUseCase{
		codes:   codes,
		subs:    subs,
		limiter: limiter,
		tm:      tm,
		log:     &l,
		now:     time.Now,
	}
}

// Validate checks a code without mutating anything. Malformed input is
// rejected before any store access; expiry is detected lazily, even when
// the sweeper has not flipped the row yet.
func (uc *RedemptionUseCase) Validate(ctx context.Context, rawCode string) (*model.CodeRequest, error) {
	code, ok := NormalizeCode(rawCode)
	if !ok {
		return nil, domain.ErrMalformedCode
	}

	req, err := uc.codes.FindByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}

	switch req.Status {
	case model.CodeStatusIssued:
		// fall through to the expiry check
	case model.CodeStatusUsed:
		return nil, domain.ErrCodeAlreadyRedeemed
	case model.CodeStatusExpired:
		return nil, domain.ErrCodeExpired
	default:
		return nil, domain.ErrCodeWrongState
	}

	if req.IsExpired(uc.now()) {
		return nil, domain.ErrCodeExpired
	}
	return req, nil
}

// CheckLimit exposes the limiter verdict for the HTTP layer.
func (uc *RedemptionUseCase) CheckLimit(ctx context.Context, actorID string, actorType model.ActorType) (bool, int, int, error) {
	return uc.limiter.CheckLimit(ctx, actorID, actorType)
}

// ValidateRecorded runs Validate and records the attempt outcome. The
// caller must have passed CheckLimit first; a rate-limited call is never
// recorded.
func (uc *RedemptionUseCase) ValidateRecorded(ctx context.Context, rawCode, actorID string, actorType model.ActorType) (*model.CodeRequest, error) {
	req, err := uc.Validate(ctx, rawCode)
	code, _ := NormalizeCode(rawCode)
	if recErr := uc.limiter.RecordAttempt(ctx, actorID, actorType, code, outcomeForError(err)); recErr != nil {
		uc.log.Error().Err(recErr).Msg("failed to record validation attempt")
	}
	return req, err
}

// Redeem atomically consumes one issued code and credits the requesting
// subscriber. Concurrent redemptions of the same code are resolved by the
// conditional status update: only the first commit wins, the loser sees
// zero rows affected and reports domain.ErrCodeAlreadyRedeemed.
func (uc *RedemptionUseCase) Redeem(ctx context.Context, rawCode, subscriberID string) (*model.Subscription, error) {
	req, err := uc.Validate(ctx, rawCode)
	if err != nil {
		uc.recordOutcome(ctx, rawCode, subscriberID, err)
		return nil, err
	}

	// Ownership mismatch is recorded and surfaced as the same class of
	// failure as an unknown code so callers cannot probe who owns what.
	if req.ClientID != subscriberID {
		uc.recordOutcome(ctx, rawCode, subscriberID, domain.ErrCodeNotYours)
		return nil, domain.ErrCodeNotYours
	}

	var sub *model.Subscription
	txCtx, cancel := context.WithTimeout(ctx, redeemTxTimeout)
	defer cancel()

	txErr := uc.tm.WithTx(txCtx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		now := uc.now()

		won, err := uc.codes.MarkUsed(ctx, tx, req.ID, subscriberID, now)
		if err != nil {
			return err
		}
		if !won {
			return domain.ErrCodeAlreadyRedeemed
		}

		existing, err := uc.subs.FindByOwner(ctx, tx, subscriberID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing == nil {
			existing = &model.Subscription{
				ID:        uuid.NewString(),
				OwnerID:   subscriberID,
				Status:    model.SubscriptionStatusExpired,
				CreatedAt: now,
				UpdatedAt: now,
			}
		}
		existing.ApplyRedemption(now)
		if err := uc.subs.Save(ctx, tx, existing); err != nil {
			return err
		}
		sub = existing
		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, domain.ErrCodeAlreadyRedeemed) {
			uc.recordOutcome(ctx, rawCode, subscriberID, txErr)
			return nil, txErr
		}
		uc.log.Error().Err(txErr).Str("code_request", req.ID).Msg("redemption transaction failed")
		uc.recordOutcome(ctx, rawCode, subscriberID, domain.ErrRedemptionFailed)
		return nil, domain.ErrRedemptionFailed
	}

	uc.recordOutcome(ctx, rawCode, subscriberID, nil)
	metrics.IncCodesRedeemed()
	uc.log.Info().Str("code_request", req.ID).Str("subscriber", subscriberID).Msg("code redeemed")
	return sub, nil
}

func (uc *RedemptionUseCase) recordOutcome(ctx context.Context, rawCode, actorID string, cause error) {
	code, _ := NormalizeCode(rawCode)
	if err := uc.limiter.RecordAttempt(ctx, actorID, model.ActorTypeClient, code, outcomeForError(cause)); err != nil {
		uc.log.Error().Err(err).Msg("failed to record redemption attempt")
	}
}

// outcomeForError maps a validation/redemption failure onto the recorded
// attempt outcome. Ownership mismatches are recorded as plain invalid so
// the audit trail does not leak code ownership either.
func outcomeForError(err error) model.AttemptOutcome {
	switch {
	case err == nil:
		return model.AttemptOutcomeSuccess
	case errors.Is(err, domain.ErrCodeExpired):
		return model.AttemptOutcomeExpired
	case errors.Is(err, domain.ErrCodeAlreadyRedeemed):
		return model.AttemptOutcomeAlreadyUsed
	default:
		return model.AttemptOutcomeInvalid
	}
}
