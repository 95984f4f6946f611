//go:build !integration

package web

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"storefront-billing/internal/domain"
	"storefront-billing/internal/domain/model"
	"storefront-billing/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type passthroughTxManager struct{}

func (passthroughTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

type memCodeRepo struct {
	mu    sync.Mutex
	store map[string]*model.CodeRequest
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{store: make(map[string]*model.CodeRequest)}
}

func (m *memCodeRepo) Save(ctx context.Context, tx repository.Tx, req *model.CodeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.store[req.ID] = &cp
	return nil
}

func (m *memCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CodeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *memCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.CodeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.store {
		if req.Code != nil && *req.Code == code {
			cp := *req
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCodeRepo) CodeExists(ctx context.Context, tx repository.Tx, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.store {
		if req.Code != nil && *req.Code == code && req.Status != model.CodeStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, id, redeemedBy string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.store[id]
	if !ok || req.Status != model.CodeStatusIssued {
		return false, nil
	}
	req.Status = model.CodeStatusUsed
	req.RedeemedBy = &redeemedBy
	t := at
	req.RedeemedAt = &t
	return true, nil
}

func (m *memCodeRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.CodeRequest, error) {
	return nil, nil
}

type memSubRepo struct {
	mu    sync.Mutex
	store map[string]*model.Subscription
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sub
	m.store[sub.OwnerID] = &cp
	return nil
}

func (m *memSubRepo) FindByOwner(ctx context.Context, tx repository.Tx, ownerID string) (*model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.store[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

type memAttemptRepo struct {
	mu       sync.Mutex
	attempts []*model.ValidationAttempt
}

func newMemAttemptRepo() *memAttemptRepo { return &memAttemptRepo{} }

func (m *memAttemptRepo) Insert(ctx context.Context, tx repository.Tx, a *model.ValidationAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.attempts = append(m.attempts, &cp)
	return nil
}

func (m *memAttemptRepo) CountSince(ctx context.Context, tx repository.Tx, actorID string, actorType model.ActorType, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.attempts {
		if a.ActorID == actorID && a.ActorType == actorType && a.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *memAttemptRepo) OldestSince(ctx context.Context, tx repository.Tx, actorID string, actorType model.ActorType, since time.Time) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest time.Time
	for _, a := range m.attempts {
		if a.ActorID == actorID && a.ActorType == actorType && a.CreatedAt.After(since) {
			if oldest.IsZero() || a.CreatedAt.Before(oldest) {
				oldest = a.CreatedAt
			}
		}
	}
	if oldest.IsZero() {
		return time.Time{}, domain.ErrNotFound
	}
	return oldest, nil
}

func (m *memAttemptRepo) PruneBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	return 0, nil
}

type noopChatSink struct{}

func (noopChatSink) SendMessage(ctx context.Context, chatID int64, text string) error { return nil }
