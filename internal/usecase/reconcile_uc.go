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

const (
	reconcileTxTimeout = 5 * time.Second
	// failedRetryDelay is fixed at one hour with no backoff growth and no
	// retry cap. Unbounded retries are a known gap carried over as-is.
	failedRetryDelay = time.Hour
)

// ReconcileUseCase applies payment-processor webhook events to the ledger
// and subscriptions exactly once. The caller verifies the signature before
// anything here runs; the processor transaction id is the idempotency key.
type ReconcileUseCase struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	planID   string
	tm       repository.TransactionManager
	log      *zerolog.Logger
	now      func() time.Time
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	planID string,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *ReconcileUseCase {
	l := logger.With().Str("component", "ReconcileUseCase").Logger()
	return &ReconcileUseCase{
		payments: payments,
		subs:     subs,
		plans:    plans,
		planID:   planID,
		tm:       tm,
		log:      &l,
		now:      time.Now,
	}
}

// Reconcile dispatches one verified webhook event. It never returns an
// error for replays or unknown event types; the processor must see 200 on
// every outcome short of a signature or parse failure.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, event model.WebhookEvent) error {
	switch ev := event.(type) {
	case model.PaymentCompletedEvent:
		return uc.applyCompleted(ctx, ev)
	case model.PaymentFailedEvent:
		return uc.applyFailed(ctx, ev)
	default:
		uc.log.Info().Str("event", event.EventType()).Msg("ignoring unknown webhook event type")
		metrics.IncWebhookEvents("unknown")
		return nil
	}
}

// applyCompleted activates the subscription and inserts the ledger row in
// one transaction. The replay check runs inside the same transaction as the
// insert; the unique constraint on transaction_id is the safety net for the
// check-then-insert window.
func (uc *ReconcileUseCase) applyCompleted(ctx context.Context, ev model.PaymentCompletedEvent) error {
	plan, err := uc.plans.FindByID(ctx, nil, uc.planID)
	if err != nil {
		return err
	}
	if ev.Amount != plan.Price {
		uc.log.Error().
			Str("transaction_id", ev.TransactionID).
			Int64("charged", ev.Amount).
			Int64("expected", plan.Price).
			Msg("charged amount does not match plan price")
		metrics.IncWebhookEvents("amount_mismatch")
		return domain.ErrAmountMismatch
	}

	txCtx, cancel := context.WithTimeout(ctx, reconcileTxTimeout)
	defer cancel()

	replay := false
	err = uc.tm.WithTx(txCtx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := uc.payments.FindByTransactionID(ctx, tx, ev.TransactionID); err == nil {
			replay = true
			return nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		now := uc.now()
		sub, err := uc.subs.FindByOwner(ctx, tx, ev.SubscriberID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if sub == nil {
			sub = &model.Subscription{
				ID:        uuid.NewString(),
				OwnerID:   ev.SubscriberID,
				Status:    model.SubscriptionStatusExpired,
				CreatedAt: now,
				UpdatedAt: now,
			}
		}
		sub.ApplyPayment(now)
		if err := uc.subs.Save(ctx, tx, sub); err != nil {
			return err
		}

		return uc.payments.Save(ctx, tx, &model.PaymentRecord{
			ID:             uuid.NewString(),
			TransactionID:  ev.TransactionID,
			SubscriberID:   ev.SubscriberID,
			SubscriptionID: &sub.ID,
			Amount:         ev.Amount,
			Currency:       ev.Currency,
			Status:         model.PaymentStatusCompleted,
			RawPayload:     ev.Raw,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	})
	if err != nil {
		uc.log.Error().Err(err).Str("transaction_id", ev.TransactionID).Msg("reconcile completed event failed")
		return err
	}
	if replay {
		uc.log.Info().Str("transaction_id", ev.TransactionID).Msg("duplicate webhook delivery, ledger row exists")
		metrics.IncWebhookEvents("replay")
		return nil
	}
	metrics.IncWebhookEvents("completed")
	metrics.IncPayments(string(model.PaymentStatusCompleted))
	uc.log.Info().Str("transaction_id", ev.TransactionID).Str("subscriber", ev.SubscriberID).Msg("payment reconciled")
	return nil
}

// applyFailed books the failure for retry. The subscription is never
// touched here: a failed renewal charge does not revoke access, separate
// expiry logic outside this core does.
func (uc *ReconcileUseCase) applyFailed(ctx context.Context, ev model.PaymentFailedEvent) error {
	txCtx, cancel := context.WithTimeout(ctx, reconcileTxTimeout)
	defer cancel()

	err := uc.tm.WithTx(txCtx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		now := uc.now()
		retryAt := now.Add(failedRetryDelay)

		existing, err := uc.payments.FindByTransactionID(ctx, tx, ev.TransactionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			if existing.Status == model.PaymentStatusCompleted {
				// A failure replayed after success is stale processor noise.
				uc.log.Info().Str("transaction_id", ev.TransactionID).Msg("failed event for completed transaction, ignoring")
				return nil
			}
			existing.RetryCount++
			existing.NextRetryAt = &retryAt
			existing.Status = model.PaymentStatusPendingRetry
			existing.UpdatedAt = now
			return uc.payments.Update(ctx, tx, existing)
		}

		return uc.payments.Save(ctx, tx, &model.PaymentRecord{
			ID:            uuid.NewString(),
			TransactionID: ev.TransactionID,
			SubscriberID:  ev.SubscriberID,
			Status:        model.PaymentStatusPendingRetry,
			RetryCount:    1,
			NextRetryAt:   &retryAt,
			RawPayload:    ev.Raw,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	})
	if err != nil {
		uc.log.Error().Err(err).Str("transaction_id", ev.TransactionID).Msg("reconcile failed event failed")
		return err
	}
	metrics.IncWebhookEvents("failed")
	metrics.IncPayments(string(model.PaymentStatusPendingRetry))
	return nil
}
