//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/adapter"
	"mentor-payments-core/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, qx repository.Tx) error) error
	Calls      int
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs the function immediately with NoTX by default. Assign WithTxFunc
// to exercise rollback behavior.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, qx repository.Tx) error) error {
	m.Calls++
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// =============================
// Transaction repository
// =============================

type MockTransactionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Transaction

	SaveFunc func(ctx context.Context, qx repository.Tx, t *model.Transaction) error
	// Claimed mirrors the claims the payout repo mock holds, for unclaimed
	// queries.
	Claimed map[string]bool
}

func NewMockTransactionRepo() *MockTransactionRepo {
	return &MockTransactionRepo{store: map[string]*model.Transaction{}, Claimed: map[string]bool{}}
}

var _ repository.TransactionRepository = (*MockTransactionRepo)(nil)

func (m *MockTransactionRepo) Save(ctx context.Context, qx repository.Tx, t *model.Transaction) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, qx, t); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
	return nil
}

func (m *MockTransactionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTransactionRepo) FindByGatewayOrderID(ctx context.Context, qx repository.Tx, orderID string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.GatewayOrderID == orderID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTransactionRepo) FindChargeBySessionID(ctx context.Context, qx repository.Tx, sessionID string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.SessionID == sessionID && t.Kind == model.TransactionKindCharge {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTransactionRepo) Complete(ctx context.Context, qx repository.Tx, id string, gatewayPayID string, completedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok || t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = model.TransactionStatusCompleted
	if gatewayPayID != "" {
		t.GatewayPayID = gatewayPayID
	}
	at := completedAt
	t.CompletedAt = &at
	t.UpdatedAt = completedAt
	return true, nil
}

func (m *MockTransactionRepo) Fail(ctx context.Context, qx repository.Tx, id string, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok || t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = model.TransactionStatusFailed
	t.FailureReason = reason
	return true, nil
}

func (m *MockTransactionRepo) Refund(ctx context.Context, qx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok || t.Status != model.TransactionStatusCompleted {
		return false, nil
	}
	t.Status = model.TransactionStatusRefunded
	return true, nil
}

func (m *MockTransactionRepo) UpdateAmounts(ctx context.Context, qx repository.Tx, id string, amount, platformFee, mentorEarnings int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.store[id]
	if !ok || t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Amount = amount
	t.PlatformFee = platformFee
	t.MentorEarnings = mentorEarnings
	return true, nil
}

func (m *MockTransactionRepo) SumCompletedByPayerSince(ctx context.Context, qx repository.Tx, menteeID string, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, t := range m.store {
		if t.MenteeID == menteeID && t.Status == model.TransactionStatusCompleted && t.Amount > 0 && !t.CreatedAt.Before(since) {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (m *MockTransactionRepo) CountByPayerSince(ctx context.Context, qx repository.Tx, menteeID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.store {
		if t.MenteeID == menteeID && !t.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MockTransactionRepo) ListUnclaimedCompleted(ctx context.Context, qx repository.Tx, mentorID string, limit int) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Transaction
	for _, t := range m.store {
		if t.MentorID == mentorID && t.Status == model.TransactionStatusCompleted && !m.Claimed[t.ID] {
			cp := *t
			out = append(out, &cp)
		}
	}
	// oldest first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.Before(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockTransactionRepo) SumUnclaimedCompleted(ctx context.Context, qx repository.Tx, mentorID string) (int64, error) {
	list, _ := m.ListUnclaimedCompleted(ctx, qx, mentorID, 0)
	var sum int64
	for _, t := range list {
		sum += t.MentorEarnings
	}
	return sum, nil
}

func (m *MockTransactionRepo) SumCompletedEarnings(ctx context.Context, qx repository.Tx, mentorID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, t := range m.store {
		if t.MentorID == mentorID && t.Status == model.TransactionStatusCompleted {
			sum += t.MentorEarnings
		}
	}
	return sum, nil
}

func (m *MockTransactionRepo) CountCompletedSessions(ctx context.Context, qx repository.Tx, mentorID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	for _, t := range m.store {
		if t.MentorID == mentorID && t.Status == model.TransactionStatusCompleted && t.Kind == model.TransactionKindCharge {
			seen[t.SessionID] = true
		}
	}
	return len(seen), nil
}

func (m *MockTransactionRepo) ListCompletedByMentorBetween(ctx context.Context, qx repository.Tx, mentorID string, from, to time.Time) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Transaction
	for _, t := range m.store {
		if t.MentorID != mentorID || t.Status != model.TransactionStatusCompleted {
			continue
		}
		at := t.CreatedAt
		if t.CompletedAt != nil {
			at = *t.CompletedAt
		}
		if !at.Before(from) && at.Before(to) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// =============================
// Session and pricing model repositories
// =============================

type MockSessionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Session

	Completed map[string]int // session id -> actual minutes written back
}

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{store: map[string]*model.Session{}, Completed: map[string]int{}}
}

var _ repository.SessionRepository = (*MockSessionRepo)(nil)

func (m *MockSessionRepo) Put(s *model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
}

func (m *MockSessionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSessionRepo) FindOverlapping(ctx context.Context, qx repository.Tx, mentorID string, start, end time.Time) ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Session
	for _, s := range m.store {
		if s.MentorID != mentorID {
			continue
		}
		if s.Status != model.SessionStatusScheduled && s.Status != model.SessionStatusInProgress {
			continue
		}
		if s.Overlaps(start, end) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockSessionRepo) MarkCompleted(ctx context.Context, qx repository.Tx, id string, actualMinutes int, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = model.SessionStatusCompleted
	s.ActualMinutes = &actualMinutes
	s.ActualEnd = &endedAt
	m.Completed[id] = actualMinutes
	return nil
}

type MockPricingModelRepo struct {
	mu    sync.RWMutex
	store map[string]*model.PricingModel

	FindByIDErr error
}

func NewMockPricingModelRepo() *MockPricingModelRepo {
	return &MockPricingModelRepo{store: map[string]*model.PricingModel{}}
}

var _ repository.PricingModelRepository = (*MockPricingModelRepo)(nil)

func (m *MockPricingModelRepo) Put(pm *model.PricingModel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pm
	m.store[pm.ID] = &cp
}

func (m *MockPricingModelRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.PricingModel, error) {
	if m.FindByIDErr != nil {
		return nil, m.FindByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	pm, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *pm
	return &cp, nil
}

func (m *MockPricingModelRepo) ListActiveByMentor(ctx context.Context, qx repository.Tx, mentorID string) ([]*model.PricingModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PricingModel
	for _, pm := range m.store {
		if pm.MentorID == mentorID && pm.IsActive {
			cp := *pm
			out = append(out, &cp)
		}
	}
	return out, nil
}

// =============================
// Usage repository
// =============================

type MockUsageRepo struct {
	mu    sync.RWMutex
	store map[string]*model.UsageTracking
}

func NewMockUsageRepo() *MockUsageRepo {
	return &MockUsageRepo{store: map[string]*model.UsageTracking{}}
}

var _ repository.UsageRepository = (*MockUsageRepo)(nil)

func (m *MockUsageRepo) Save(ctx context.Context, qx repository.Tx, u *model.UsageTracking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *MockUsageRepo) FindBySessionID(ctx context.Context, qx repository.Tx, sessionID string) (*model.UsageTracking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.SessionID == sessionID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUsageRepo) Settle(ctx context.Context, qx repository.Tx, id string, actualMinutes int, totalCost int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok || u.Status != model.UsageStatusActive {
		return false, nil
	}
	u.Status = model.UsageStatusCompleted
	u.ActualMinutes = &actualMinutes
	u.TotalCost = totalCost
	return true, nil
}

func (m *MockUsageRepo) Cancel(ctx context.Context, qx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok || u.Status != model.UsageStatusActive {
		return false, nil
	}
	u.Status = model.UsageStatusCancelled
	return true, nil
}

// =============================
// Subscription repository
// =============================

type MockSubscriptionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Subscription
}

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{store: map[string]*model.Subscription{}}
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (m *MockSubscriptionRepo) Save(ctx context.Context, qx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockSubscriptionRepo) FindActiveByPair(ctx context.Context, qx repository.Tx, menteeID, mentorID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.MenteeID == menteeID && s.MentorID == mentorID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) AdvancePeriod(ctx context.Context, qx repository.Tx, id string, now, nextPayment, periodStart, periodEnd time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok || s.Status != model.SubscriptionStatusActive || s.NextPaymentDate.After(now) {
		return false, nil
	}
	s.NextPaymentDate = nextPayment
	s.CurrentPeriodStart = periodStart
	s.CurrentPeriodEnd = periodEnd
	return true, nil
}

func (m *MockSubscriptionRepo) Cancel(ctx context.Context, qx repository.Tx, id string, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok || s.Status != model.SubscriptionStatusActive {
		return false, nil
	}
	s.Status = model.SubscriptionStatusCancelled
	s.CancelReason = reason
	cancelAt := at
	s.CancelledAt = &cancelAt
	return true, nil
}

func (m *MockSubscriptionRepo) ListDue(ctx context.Context, qx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && !s.NextPaymentDate.After(now) {
			cp := *s
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// =============================
// Payout repository
// =============================

type MockPayoutRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Payout
	claimed map[string]string // transaction id -> payout id

	// Mirror lets claims flow back into the transaction repo's unclaimed
	// queries.
	Mirror *MockTransactionRepo

	CompleteErr error // simulate a disbursement failure in SettlePending
}

func NewMockPayoutRepo(mirror *MockTransactionRepo) *MockPayoutRepo {
	return &MockPayoutRepo{store: map[string]*model.Payout{}, claimed: map[string]string{}, Mirror: mirror}
}

var _ repository.PayoutRepository = (*MockPayoutRepo)(nil)

func (m *MockPayoutRepo) Create(ctx context.Context, qx repository.Tx, p *model.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, txID := range p.TransactionIDs {
		if _, taken := m.claimed[txID]; taken {
			return domain.ErrTransactionClaimed
		}
	}
	for _, txID := range p.TransactionIDs {
		m.claimed[txID] = p.ID
		if m.Mirror != nil {
			m.Mirror.mu.Lock()
			m.Mirror.Claimed[txID] = true
			m.Mirror.mu.Unlock()
		}
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *MockPayoutRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Payout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPayoutRepo) HasClaim(ctx context.Context, qx repository.Tx, transactionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.claimed[transactionID]
	return ok, nil
}

func (m *MockPayoutRepo) ListPending(ctx context.Context, qx repository.Tx, limit int) ([]*model.Payout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payout
	for _, p := range m.store {
		if p.Status == model.PayoutStatusPending {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockPayoutRepo) Complete(ctx context.Context, qx repository.Tx, id string, processedAt time.Time) (bool, error) {
	if m.CompleteErr != nil {
		return false, m.CompleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PayoutStatusPending {
		return false, nil
	}
	p.Status = model.PayoutStatusCompleted
	at := processedAt
	p.ProcessedAt = &at
	return true, nil
}

func (m *MockPayoutRepo) MarkFailed(ctx context.Context, qx repository.Tx, id string, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.Status != model.PayoutStatusPending {
		return false, nil
	}
	p.Status = model.PayoutStatusFailed
	p.FailureReason = reason
	for _, txID := range p.TransactionIDs {
		delete(m.claimed, txID)
		if m.Mirror != nil {
			m.Mirror.mu.Lock()
			delete(m.Mirror.Claimed, txID)
			m.Mirror.mu.Unlock()
		}
	}
	return true, nil
}

func (m *MockPayoutRepo) IncrementAttempts(ctx context.Context, qx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Attempts++
	return nil
}

func (m *MockPayoutRepo) SumPendingByMentor(ctx context.Context, qx repository.Tx, mentorID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum int64
	for _, p := range m.store {
		if p.MentorID == mentorID && p.Status == model.PayoutStatusPending {
			sum += p.Amount
		}
	}
	return sum, nil
}

// =============================
// Audit repository
// =============================

type MockAuditRepo struct {
	mu      sync.RWMutex
	Entries []*model.AuditLogEntry
}

func NewMockAuditRepo() *MockAuditRepo { return &MockAuditRepo{} }

var _ repository.AuditLogRepository = (*MockAuditRepo)(nil)

func (m *MockAuditRepo) Save(ctx context.Context, qx repository.Tx, e *model.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.Entries = append(m.Entries, &cp)
	return nil
}

func (m *MockAuditRepo) ListByResource(ctx context.Context, qx repository.Tx, resource, resourceID string, limit int) ([]*model.AuditLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.AuditLogEntry
	for _, e := range m.Entries {
		if e.Resource == resource && e.ResourceID == resourceID {
			cp := *e
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockAuditRepo) PurgeOlderThan(ctx context.Context, qx repository.Tx, category model.AuditCategory, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*model.AuditLogEntry
	var removed int64
	for _, e := range m.Entries {
		if e.Category == category && e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.Entries = kept
	return removed, nil
}

// Actions returns the recorded action names in order, for assertions.
func (m *MockAuditRepo) Actions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, e.Action)
	}
	return out
}

// =============================
// Payment gateway
// =============================

type MockPaymentGateway struct {
	mu     sync.Mutex
	Orders map[string]*adapter.Order

	CreateOrderErr  error
	RefundErr       error
	Refunds         []string // payment ids refunded
	ValidSignatures map[string]bool
	WebhookValid    bool
	WebhookEvent    *adapter.WebhookEvent
}

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{
		Orders:          map[string]*adapter.Order{},
		ValidSignatures: map[string]bool{},
		WebhookValid:    true,
	}
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*adapter.Order, error) {
	if m.CreateOrderErr != nil {
		return nil, m.CreateOrderErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o := &adapter.Order{
		ID:          "order_" + uuid.NewString()[:8],
		AmountMinor: amountMinor,
		Currency:    currency,
		Receipt:     receipt,
		Status:      "created",
		CreatedAt:   time.Now(),
	}
	m.Orders[o.ID] = o
	return o, nil
}

func (m *MockPaymentGateway) GetOrder(ctx context.Context, orderID string) (*adapter.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[orderID]
	if !ok {
		return nil, &domain.GatewayError{Code: "NOT_FOUND", Status: 404}
	}
	return o, nil
}

func (m *MockPaymentGateway) GetPayment(ctx context.Context, paymentID string) (*adapter.Payment, error) {
	return &adapter.Payment{ID: paymentID, Status: "captured"}, nil
}

func (m *MockPaymentGateway) CapturePayment(ctx context.Context, paymentID string, amountMinor int64) (*adapter.Payment, error) {
	return &adapter.Payment{ID: paymentID, AmountMinor: amountMinor, Status: "captured"}, nil
}

func (m *MockPaymentGateway) CreateRefund(ctx context.Context, paymentID string, amountMinor int64, notes map[string]string) (*adapter.Refund, error) {
	if m.RefundErr != nil {
		return nil, m.RefundErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refunds = append(m.Refunds, paymentID)
	return &adapter.Refund{ID: "rfnd_" + uuid.NewString()[:8], PaymentID: paymentID, AmountMinor: amountMinor, Status: "processed"}, nil
}

func (m *MockPaymentGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return m.ValidSignatures[fmt.Sprintf("%s|%s|%s", orderID, paymentID, signature)]
}

func (m *MockPaymentGateway) AllowSignature(orderID, paymentID, signature string) {
	m.ValidSignatures[fmt.Sprintf("%s|%s|%s", orderID, paymentID, signature)] = true
}

func (m *MockPaymentGateway) VerifyWebhookSignature(payload []byte, signature string) bool {
	return m.WebhookValid
}

func (m *MockPaymentGateway) ParseWebhook(payload []byte) (*adapter.WebhookEvent, error) {
	if m.WebhookEvent == nil {
		return nil, fmt.Errorf("no event configured")
	}
	return m.WebhookEvent, nil
}

// =============================
// Locker and spend counter
// =============================

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMockLocker() *MockLocker { return &MockLocker{held: map[string]string{}} }

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return "", domain.ErrConflict
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type MockSpendCounter struct {
	mu     sync.Mutex
	totals map[string]int64

	ReserveErr error
}

func NewMockSpendCounter() *MockSpendCounter { return &MockSpendCounter{totals: map[string]int64{}} }

func (c *MockSpendCounter) Reserve(ctx context.Context, payerID string, amount, dailyLimit, monthlyLimit int64) (bool, error) {
	if c.ReserveErr != nil {
		return false, c.ReserveErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.totals[payerID]+amount > dailyLimit || c.totals[payerID]+amount > monthlyLimit {
		return false, nil
	}
	c.totals[payerID] += amount
	return true, nil
}

func (c *MockSpendCounter) Release(ctx context.Context, payerID string, amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totals[payerID] -= amount
	return nil
}
