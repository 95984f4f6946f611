package web

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/infra/metrics"
)

type validateRequest struct {
	Code string `json:"code"`
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

type redeemRequest struct {
	Code string `json:"code"`
}

type redeemResponse struct {
	Success           bool                 `json:"success"`
	Subscription      *subscriptionPayload `json:"subscription,omitempty"`
	Error             string               `json:"error,omitempty"`
	AttemptsRemaining *int                 `json:"attemptsRemaining,omitempty"`
}

type subscriptionPayload struct {
	Status             string `json:"status"`
	CurrentPeriodStart string `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   string `json:"current_period_end,omitempty"`
	AutoRenew          bool   `json:"auto_renew"`
}

type requestCodeRequest struct {
	ChatID   int64  `json:"chatId"`
	SellerID string `json:"sellerId"`
}

type requestCodeResponse struct {
	Success       bool   `json:"success"`
	CodeRequestID string `json:"codeRequestId,omitempty"`
	Message       string `json:"message"`
}

type issueRequest struct {
	CodeRequestID string `json:"codeRequestId"`
	PaymentMethod string `json:"paymentMethod"`
	Notes         string `json:"notes,omitempty"`
}

type issueResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type rateLimitedResponse struct {
	Error   string `json:"error"`
	ResetIn int    `json:"resetIn"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, validateResponse{Valid: false, Error: "invalid request body"})
		return
	}

	actorID, actorType := s.actorFor(r)
	allowed, _, resetIn, err := s.redeemUC.CheckLimit(ctx, actorID, actorType)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, validateResponse{Valid: false, Error: "something went wrong"})
		return
	}
	if !allowed {
		metrics.IncRateLimited()
		writeJSON(w, http.StatusTooManyRequests, rateLimitedResponse{Error: "too many attempts", ResetIn: resetIn})
		return
	}

	if _, err := s.redeemUC.ValidateRecorded(ctx, req.Code, actorID, actorType); err != nil {
		writeJSON(w, http.StatusBadRequest, validateResponse{Valid: false, Error: userMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true})
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ClaimsFromContext(ctx)

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, redeemResponse{Success: false, Error: "invalid request body"})
		return
	}

	allowed, remaining, resetIn, err := s.redeemUC.CheckLimit(ctx, claims.Subject, model.ActorTypeClient)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, redeemResponse{Success: false, Error: "something went wrong"})
		return
	}
	if !allowed {
		metrics.IncRateLimited()
		writeJSON(w, http.StatusTooManyRequests, rateLimitedResponse{Error: "too many attempts", ResetIn: resetIn})
		return
	}

	sub, err := s.redeemUC.Redeem(ctx, req.Code, claims.Subject)
	if err != nil {
		// The attempt just recorded consumed one slot.
		if remaining > 0 {
			remaining--
		}
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrRedemptionFailed) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, redeemResponse{Success: false, Error: userMessage(err), AttemptsRemaining: &remaining})
		return
	}

	writeJSON(w, http.StatusOK, redeemResponse{Success: true, Subscription: subscriptionToPayload(sub)})
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ClaimsFromContext(ctx)

	var req requestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SellerID == "" {
		writeJSON(w, http.StatusBadRequest, requestCodeResponse{Success: false, Message: "invalid request body"})
		return
	}

	created, err := s.issueUC.RequestCode(ctx, req.ChatID, claims.Subject, req.SellerID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeJSON(w, http.StatusBadRequest, requestCodeResponse{Success: false, Message: "invalid request body"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, requestCodeResponse{Success: false, Message: "something went wrong"})
		return
	}

	writeJSON(w, http.StatusOK, requestCodeResponse{
		Success:       true,
		CodeRequestID: created.ID,
		Message:       "code request created, the seller will issue a code after payment",
	})
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := ClaimsFromContext(ctx)

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CodeRequestID == "" {
		writeJSON(w, http.StatusBadRequest, issueResponse{Success: false, Message: "invalid request body"})
		return
	}

	issued, err := s.issueUC.Issue(ctx, req.CodeRequestID, claims.Subject, req.PaymentMethod, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeJSON(w, http.StatusNotFound, issueResponse{Success: false, Message: "code request not found"})
		case errors.Is(err, domain.ErrAlreadyFinalized), errors.Is(err, domain.ErrCodeWrongState):
			writeJSON(w, http.StatusConflict, issueResponse{Success: false, Message: "code request is not pending"})
		case errors.Is(err, domain.ErrGenerationExhausted):
			s.log.Error().Err(err).Msg("code generation exhausted")
			writeJSON(w, http.StatusInternalServerError, issueResponse{Success: false, Message: "could not generate a code"})
		default:
			writeJSON(w, http.StatusInternalServerError, issueResponse{Success: false, Message: "something went wrong"})
		}
		return
	}

	writeJSON(w, http.StatusOK, issueResponse{Success: true, Code: *issued.Code, Message: "code issued and sent to the conversation"})
}

// actorFor resolves the rate-limit actor for the open /validate route:
// the authenticated subject when a token is present, the caller's address
// otherwise.
func (s *Server) actorFor(r *http.Request) (string, model.ActorType) {
	if claims, err := s.auth.ParseFromRequest(r); err == nil {
		if claims.Role == RoleSeller {
			return claims.Subject, model.ActorTypeSeller
		}
		return claims.Subject, model.ActorTypeClient
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host, model.ActorTypeClient
}

// userMessage maps a domain failure onto the short, non-technical string a
// caller sees. Unknown codes and codes owned by someone else read the same
// so the response cannot be used to probe ownership.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedCode):
		return "malformed code"
	case errors.Is(err, domain.ErrCodeNotFound), errors.Is(err, domain.ErrCodeNotYours), errors.Is(err, domain.ErrCodeWrongState):
		return "code not found"
	case errors.Is(err, domain.ErrCodeExpired):
		return "code has expired"
	case errors.Is(err, domain.ErrCodeAlreadyRedeemed):
		return "code already redeemed"
	default:
		return "something went wrong, try again"
	}
}

func subscriptionToPayload(sub *model.Subscription) *subscriptionPayload {
	p := &subscriptionPayload{Status: string(sub.Status), AutoRenew: sub.AutoRenew}
	if sub.CurrentPeriodStart != nil {
		p.CurrentPeriodStart = sub.CurrentPeriodStart.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if sub.CurrentPeriodEnd != nil {
		p.CurrentPeriodEnd = sub.CurrentPeriodEnd.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return p
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
