package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"storefront-billing/internal/domain/ports/adapter"
	"storefront-billing/internal/domain/ports/repository"
	"storefront-billing/internal/infra/metrics"
)

// attemptRetention is how long validation attempts are kept. Far beyond the
// 60-second rate-limit window, so pruning can never bend a verdict.
const attemptRetention = 24 * time.Hour

// SweeperUseCase finalizes stale issued codes and prunes old rate-limit
// audit rows. Each run is self-contained; a failed run just leaves work for
// the next tick.
type SweeperUseCase struct {
	codes    repository.CodeRequestRepository
	attempts repository.ValidationAttemptRepository
	chat     adapter.ChatSink
	log      *zerolog.Logger
	now      func() time.Time
}

func NewSweeperUseCase(
	codes repository.CodeRequestRepository,
	attempts repository.ValidationAttemptRepository,
	chat adapter.ChatSink,
	logger *zerolog.Logger,
) *SweeperUseCase {
	l := logger.With().Str("component", "SweeperUseCase").Logger()
	return &SweeperUseCase{codes: codes, attempts: attempts, chat: chat, log: &l, now: time.Now}
}

// Sweep flips all overdue issued codes to expired in one bulk update and
// notifies each originating conversation. Notification failures are logged
// and dropped; the expiry itself has already committed.
func (uc *SweeperUseCase) Sweep(ctx context.Context) (int, error) {
	expired, err := uc.codes.ExpireDue(ctx, nil, uc.now())
	if err != nil {
		return 0, err
	}

	for _, req := range expired {
		if err := uc.chat.SendMessage(ctx, req.ChatID, "Your subscription code has expired. Ask your seller for a new one."); err != nil {
			uc.log.Error().Err(err).Str("code_request", req.ID).Int64("chat_id", req.ChatID).Msg("expiry notification failed")
		}
	}

	if n := len(expired); n > 0 {
		metrics.IncCodesExpired(n)
	}

	if pruned, err := uc.attempts.PruneBefore(ctx, nil, uc.now().Add(-attemptRetention)); err != nil {
		uc.log.Error().Err(err).Msg("attempt pruning failed")
	} else if pruned > 0 {
		uc.log.Debug().Int64("count", pruned).Msg("pruned old validation attempts")
	}

	return len(expired), nil
}
