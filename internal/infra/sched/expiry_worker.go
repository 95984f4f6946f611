package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"storefront-billing/internal/usecase"
)

// Sweeper is the minimal interface the worker needs from the sweep use case.
type Sweeper interface {
	// Sweep expires stale issued codes and returns how many were flipped.
	Sweep(ctx context.Context) (int, error)
}

var _ Sweeper = (*usecase.SweeperUseCase)(nil)

// ExpiryWorker periodically runs the sweeper. It is an owned handle: the
// constructor returns it stopped, Start launches the loop, Stop cancels and
// waits. Tests drive RunOnce directly for deterministic single ticks.
type ExpiryWorker struct {
	interval time.Duration
	sweeper  Sweeper
	log      *zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewExpiryWorker(interval time.Duration, sweeper Sweeper, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		sweeper:  sweeper,
		log:      &l,
	}
}

// Start begins the loop in a background goroutine. Calling Start on a
// running worker has no effect.
func (w *ExpiryWorker) Start(parentCtx context.Context) {
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(ctx)
}

func (w *ExpiryWorker) loop(ctx context.Context) {
	defer close(w.done)
	w.log.Info().Dur("interval", w.interval).Msg("starting expiry worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping expiry worker")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep tick with a bounded timeout. A failed
// run leaves its work for the next tick; the sweep is self-healing.
func (w *ExpiryWorker) RunOnce(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := w.sweeper.Sweep(tickCtx)
	if err != nil {
		w.log.Error().Err(err).Msg("sweep failed")
		return
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("expired stale codes")
	}
}

// Stop cancels the loop and waits for it to finish. It is idempotent.
func (w *ExpiryWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil
}
