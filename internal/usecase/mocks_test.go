//go:build !integration

package usecase

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

// mockTxManager runs the callback directly with a nil tx handle.
type mockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func newMockTxManager() *mockTxManager { return &mockTxManager{} }

func (m *mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}

// memCodeRepo is a small in-memory code store used by unit tests.
// Func fields override individual methods when a test needs to.
type memCodeRepo struct {
	mu    sync.Mutex
	store map[string]*model.CodeRequest // by ID

	FindByCodeFunc func(ctx context.Context, tx repository.Tx, code string) (*model.CodeRequest, error)
	CodeExistsFunc func(ctx context.Context, tx repository.Tx, code string) (bool, error)
	saveErr        error
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{store: make(map[string]*model.CodeRequest)}
}

func (m *memCodeRepo) Save(ctx context.Context, tx repository.Tx, req *model.CodeRequest) error {
	if m.saveErr != nil {
		return m.saveErr
	}
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
	if m.FindByCodeFunc != nil {
		return m.FindByCodeFunc(ctx, tx, code)
	}
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
	if m.CodeExistsFunc != nil {
		return m.CodeExistsFunc(ctx, tx, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.store {
		if req.Code != nil && *req.Code == code && req.Status != model.CodeStatusPending {
			return true, nil
		}
	}
	return false, nil
}

// MarkUsed mirrors the SQL conditional update: the status guard and the
// mutation happen under one lock, so concurrent callers race exactly like
// they would against the database.
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
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.CodeRequest
	for _, req := range m.store {
		if req.Status == model.CodeStatusIssued && req.ExpiresAt != nil && req.ExpiresAt.Before(now) {
			req.Status = model.CodeStatusExpired
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

// memSubRepo is an in-memory subscription store keyed by owner.
type memSubRepo struct {
	mu    sync.Mutex
	store map[string]*model.Subscription

	saveErr error
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubRepo) Save(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if m.saveErr != nil {
		return m.saveErr
	}
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

// memPaymentRepo enforces transaction-id uniqueness like the real table.
type memPaymentRepo struct {
	mu    sync.Mutex
	store map[string]*model.PaymentRecord // by transaction id
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.PaymentRecord)}
}

func (m *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[p.TransactionID]; exists {
		return domain.ErrOperationFailed
	}
	cp := *p
	m.store[p.TransactionID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.PaymentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) Update(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.TransactionID] = &cp
	return nil
}

func (m *memPaymentRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// memAttemptRepo backs the rate limiter in tests.
type memAttemptRepo struct {
	mu       sync.Mutex
	attempts []*model.ValidationAttempt

	InsertFunc func(ctx context.Context, tx repository.Tx, a *model.ValidationAttempt) error
	pruneErr   error
}

func newMemAttemptRepo() *memAttemptRepo { return &memAttemptRepo{} }

func (m *memAttemptRepo) Insert(ctx context.Context, tx repository.Tx, a *model.ValidationAttempt) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, tx, a)
	}
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
	if m.pruneErr != nil {
		return 0, m.pruneErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.ValidationAttempt
	var pruned int64
	for _, a := range m.attempts {
		if a.CreatedAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, a)
	}
	m.attempts = kept
	return pruned, nil
}

func (m *memAttemptRepo) outcomes() []model.AttemptOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.AttemptOutcome, 0, len(m.attempts))
	for _, a := range m.attempts {
		out = append(out, a.Outcome)
	}
	return out
}

// memPlanRepo serves a fixed catalog.
type memPlanRepo struct {
	mu    sync.Mutex
	store map[string]*model.Plan
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{store: make(map[string]*model.Plan)}
}

func (m *memPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *plan
	m.store[plan.ID] = &cp
	return nil
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *plan
	return &cp, nil
}

func (m *memPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Plan, 0, len(m.store))
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// mockChatSink records sent messages.
type mockChatSink struct {
	mu       sync.Mutex
	messages []string
	chatIDs  []int64
	sendErr  error
}

func (m *mockChatSink) SendMessage(ctx context.Context, chatID int64, text string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, text)
	m.chatIDs = append(m.chatIDs, chatID)
	return nil
}

func (m *mockChatSink) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}
