package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"storefront-billing/internal/config"
	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/infra/payment"
	"storefront-billing/internal/usecase"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// Server ingests payment-processor webhooks. Past the signature gate the
// processor always gets 200, whatever happens inside: anything else would
// trigger its retry storm on top of what idempotency already absorbs.
type Server struct {
	cfg    *config.WebhookConfig
	recUC  *usecase.ReconcileUseCase
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(cfg *config.WebhookConfig, recUC *usecase.ReconcileUseCase, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "WebhookServer").Logger()
	return &Server{cfg: cfg, recUC: recUC, log: &l}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWebhook)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info().Int("port", s.cfg.Port).Str("path", s.cfg.Path).Msg("webhook server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	// Signature check runs before anything else and is never retried.
	sig := r.Header.Get("X-Signature")
	if sig == "" || !payment.VerifyWebhookSignature(s.cfg.Secret, body, sig) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("webhook signature rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	event, err := model.ParseWebhookEvent(body)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.recUC.Reconcile(ctx, event); err != nil {
		// Internal failures are logged and alerted on, not surfaced: the
		// processor retries on non-200 and a mismatch will never resolve
		// itself by retrying.
		if errors.Is(err, domain.ErrAmountMismatch) {
			s.log.Error().Err(err).Msg("webhook amount mismatch, acknowledged anyway")
		} else {
			s.log.Error().Err(err).Msg("webhook reconciliation failed, acknowledged anyway")
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
