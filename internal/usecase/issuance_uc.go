package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/adapter"
	"storefront-billing/internal/domain/ports/repository"
	"storefront-billing/internal/infra/metrics"
)

const (
	// codeTTL is how long an issued code stays redeemable.
	codeTTL = time.Hour
	// maxGenerationRetries bounds the uniqueness retry loop. Exhausting it
	// means the entropy source or the store is broken, not bad luck.
	maxGenerationRetries = 10
)

// IssuanceUseCase creates pending code requests when clients ask in chat
// and issues codes once the seller confirms payment out-of-band.
type IssuanceUseCase struct {
	codes repository.CodeRequestRepository
	chat  adapter.ChatSink
	log   *zerolog.Logger
	now   func() time.Time
}

func NewIssuanceUseCase(codes repository.CodeRequestRepository, chat adapter.ChatSink, logger *zerolog.Logger) *IssuanceUseCase {
	l := logger.With().Str("component", "IssuanceUseCase").Logger()
	return &IssuanceUseCase{codes: codes, chat: chat, log: &l, now: time.Now}
}

// RequestCode records a client's request for a code in the pending state.
// No code value exists yet; the seller issues one after taking payment.
func (uc *IssuanceUseCase) RequestCode(ctx context.Context, chatID int64, clientID, sellerID string) (*model.CodeRequest, error) {
	if clientID == "" || sellerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	req := &model.CodeRequest{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		ClientID:  clientID,
		SellerID:  sellerID,
		Status:    model.CodeStatusPending,
		CreatedAt: uc.now(),
	}
	if err := uc.codes.Save(ctx, nil, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Issue stamps a unique code and a one-hour expiry onto a pending request
// and notifies the originating conversation. Only the seller who owns the
// request may issue it.
func (uc *IssuanceUseCase) Issue(ctx context.Context, codeRequestID, sellerID, paymentMethod, notes string) (*model.CodeRequest, error) {
	req, err := uc.codes.FindByID(ctx, nil, codeRequestID)
	if err != nil {
		return nil, err
	}
	if req.SellerID != sellerID {
		return nil, domain.ErrNotFound
	}
	if req.Status.IsTerminal() {
		return nil, domain.ErrAlreadyFinalized
	}
	if req.Status != model.CodeStatusPending {
		return nil, domain.ErrCodeWrongState
	}

	code, err := uc.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	expires := now.Add(codeTTL)
	req.Code = &code
	req.Status = model.CodeStatusIssued
	req.PaymentMethod = paymentMethod
	req.Notes = notes
	req.IssuedAt = &now
	req.ExpiresAt = &expires

	if err := uc.codes.Save(ctx, nil, req); err != nil {
		return nil, err
	}
	metrics.IncCodesIssued()

	// Delivery is best-effort; the code is issued either way and the seller
	// sees it in the API response.
	msg := fmt.Sprintf("Your subscription code: %s\nValid until %s.", code, expires.UTC().Format(time.RFC1123))
	if err := uc.chat.SendMessage(ctx, req.ChatID, msg); err != nil {
		uc.log.Error().Err(err).Int64("chat_id", req.ChatID).Msg("failed to deliver issued code to chat")
	}

	uc.log.Info().Str("code_request", req.ID).Str("seller", sellerID).Msg("code issued")
	return req, nil
}

// uniqueCode generates codes until one is free of collisions, a bounded
// number of times. Collisions at 82 bits of entropy mean something is
// wrong operationally, so exhaustion is surfaced loudly.
func (uc *IssuanceUseCase) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxGenerationRetries; i++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		taken, err := uc.codes.CodeExists(ctx, nil, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	uc.log.Error().Int("retries", maxGenerationRetries).Msg("code generation exhausted retries")
	return "", domain.ErrGenerationExhausted
}
