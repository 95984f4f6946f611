package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"storefront-billing/internal/usecase"
)

// Server exposes the billing core's public surface: code validation,
// redemption, and seller issuance.
type Server struct {
	redeemUC *usecase.RedemptionUseCase
	issueUC  *usecase.IssuanceUseCase
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(
	redeemUC *usecase.RedemptionUseCase,
	issueUC *usecase.IssuanceUseCase,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		redeemUC: redeemUC,
		issueUC:  issueUC,
		auth:     auth,
		log:      &l,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/validate", s.handleValidate)
	r.Method(http.MethodPost, "/redeem", s.auth.RequireRole(RoleClient, http.HandlerFunc(s.handleRedeem)))
	r.Method(http.MethodPost, "/request-code", s.auth.RequireRole(RoleClient, http.HandlerFunc(s.handleRequestCode)))
	r.Method(http.MethodPost, "/issue", s.auth.RequireRole(RoleSeller, http.HandlerFunc(s.handleIssue)))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
