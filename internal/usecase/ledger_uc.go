package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
	"mentor-payments-core/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// CreateTransactionParams describes a new charge or adjustment before the fee
// split is applied.
type CreateTransactionParams struct {
	SessionID      string
	MentorID       string
	MenteeID       string
	PricingModelID string
	Kind           model.TransactionKind
	Amount         int64
	Currency       string
	PaymentMethod  string
	GatewayOrderID string
	ParentID       *string
}

// LedgerUseCase is the transaction record of truth. Every state transition
// emits one audit entry with before/after amounts and status. Methods accept
// a qx handle so pricing handlers can compose ledger writes into one
// transaction boundary.
type LedgerUseCase interface {
	Create(ctx context.Context, qx repository.Tx, p CreateTransactionParams) (*model.Transaction, error)
	// Complete is idempotent: completing an already-completed transaction
	// returns the existing state unchanged, because gateway callbacks may be
	// delivered more than once. transitioned reports whether this call won
	// the pending->completed transition; callers that reserved side effects
	// against the completion must undo them when it is false.
	Complete(ctx context.Context, qx repository.Tx, id, gatewayPayID string) (t *model.Transaction, transitioned bool, err error)
	// Fail transitions pending -> failed.
	Fail(ctx context.Context, qx repository.Tx, id, reason string) (*model.Transaction, error)
	// Refund transitions completed -> refunded. A second refund attempt is a
	// conflict, never a silent success: refunds move real money.
	Refund(ctx context.Context, qx repository.Tx, id string) (*model.Transaction, error)
	// Adjust recomputes the fee split of a still-pending transaction in
	// place. Used for pre-confirmation estimate corrections only; settled
	// hourly deltas are posted as separate adjustment transactions.
	Adjust(ctx context.Context, qx repository.Tx, id string, newAmount int64) (*model.Transaction, error)

	FeeBasisPoints() int
}

type ledgerUC struct {
	transactions repository.TransactionRepository
	audit        AuditUseCase
	feeBps       int
	log          *zerolog.Logger
}

func NewLedgerUseCase(transactions repository.TransactionRepository, audit AuditUseCase, feeBasisPoints int, logger *zerolog.Logger) *ledgerUC {
	return &ledgerUC{transactions: transactions, audit: audit, feeBps: feeBasisPoints, log: logger}
}

func (u *ledgerUC) FeeBasisPoints() int { return u.feeBps }

func (u *ledgerUC) Create(ctx context.Context, qx repository.Tx, p CreateTransactionParams) (*model.Transaction, error) {
	if p.SessionID == "" || p.MentorID == "" || p.MenteeID == "" {
		return nil, domain.ErrInvalidArgument
	}
	fee, earnings := model.SplitFee(p.Amount, u.feeBps)
	now := time.Now()
	kind := p.Kind
	if kind == "" {
		kind = model.TransactionKindCharge
	}
	t := &model.Transaction{
		ID:             uuid.NewString(),
		SessionID:      p.SessionID,
		MentorID:       p.MentorID,
		MenteeID:       p.MenteeID,
		PricingModelID: p.PricingModelID,
		Kind:           kind,
		Amount:         p.Amount,
		PlatformFee:    fee,
		MentorEarnings: earnings,
		Currency:       p.Currency,
		Status:         model.TransactionStatusPending,
		PaymentMethod:  p.PaymentMethod,
		GatewayOrderID: p.GatewayOrderID,
		CreatedAt:      now,
		UpdatedAt:      now,
		ParentID:       p.ParentID,
	}
	if err := u.transactions.Save(ctx, qx, t); err != nil {
		return nil, err
	}
	metrics.IncTransaction(string(t.Status))
	u.audit.Log(ctx, actorFrom(ctx), "transaction.create", "transaction", t.ID, model.AuditCategoryPayment, map[string]interface{}{
		"session_id":      t.SessionID,
		"kind":            string(t.Kind),
		"amount":          t.Amount,
		"platform_fee":    t.PlatformFee,
		"mentor_earnings": t.MentorEarnings,
		"status_after":    string(t.Status),
	})
	return t, nil
}

func (u *ledgerUC) Complete(ctx context.Context, qx repository.Tx, id, gatewayPayID string) (*model.Transaction, bool, error) {
	now := time.Now()
	ok, err := u.transactions.Complete(ctx, qx, id, gatewayPayID, now)
	if err != nil {
		return nil, false, err
	}
	t, ferr := u.transactions.FindByID(ctx, qx, id)
	if ferr != nil {
		return nil, false, ferr
	}
	if !ok {
		// Not transitioned. Replayed completion of an already-completed
		// transaction is a no-op by design; anything else is a conflict.
		if t.Status == model.TransactionStatusCompleted {
			return t, false, nil
		}
		return nil, false, domain.ErrTransactionTerminal
	}
	metrics.IncTransaction(string(model.TransactionStatusCompleted))
	metrics.AddRevenue(t.Currency, t.Amount)
	u.audit.Log(ctx, actorFrom(ctx), "transaction.complete", "transaction", t.ID, model.AuditCategoryPayment, map[string]interface{}{
		"amount":          t.Amount,
		"platform_fee":    t.PlatformFee,
		"mentor_earnings": t.MentorEarnings,
		"status_before":   string(model.TransactionStatusPending),
		"status_after":    string(model.TransactionStatusCompleted),
	})
	return t, true, nil
}

func (u *ledgerUC) Fail(ctx context.Context, qx repository.Tx, id, reason string) (*model.Transaction, error) {
	ok, err := u.transactions.Fail(ctx, qx, id, reason)
	if err != nil {
		return nil, err
	}
	t, ferr := u.transactions.FindByID(ctx, qx, id)
	if ferr != nil {
		return nil, ferr
	}
	if !ok {
		if t.Status == model.TransactionStatusFailed {
			// replayed failure webhook
			return t, nil
		}
		return nil, domain.ErrTransactionTerminal
	}
	metrics.IncTransaction(string(model.TransactionStatusFailed))
	u.audit.Log(ctx, actorFrom(ctx), "transaction.fail", "transaction", t.ID, model.AuditCategoryPayment, map[string]interface{}{
		"reason":        reason,
		"amount":        t.Amount,
		"status_before": string(model.TransactionStatusPending),
		"status_after":  string(model.TransactionStatusFailed),
	})
	return t, nil
}

func (u *ledgerUC) Refund(ctx context.Context, qx repository.Tx, id string) (*model.Transaction, error) {
	ok, err := u.transactions.Refund(ctx, qx, id)
	if err != nil {
		return nil, err
	}
	t, ferr := u.transactions.FindByID(ctx, qx, id)
	if ferr != nil {
		return nil, ferr
	}
	if !ok {
		if t.Status == model.TransactionStatusRefunded {
			return nil, domain.ErrAlreadyRefunded
		}
		return nil, domain.ErrTransactionTerminal
	}
	metrics.IncTransaction(string(model.TransactionStatusRefunded))
	u.audit.Log(ctx, actorFrom(ctx), "transaction.refund", "transaction", t.ID, model.AuditCategoryPayment, map[string]interface{}{
		"amount":        t.Amount,
		"status_before": string(model.TransactionStatusCompleted),
		"status_after":  string(model.TransactionStatusRefunded),
	})
	return t, nil
}

func (u *ledgerUC) Adjust(ctx context.Context, qx repository.Tx, id string, newAmount int64) (*model.Transaction, error) {
	before, err := u.transactions.FindByID(ctx, qx, id)
	if err != nil {
		return nil, err
	}
	fee, earnings := model.SplitFee(newAmount, u.feeBps)
	ok, err := u.transactions.UpdateAmounts(ctx, qx, id, newAmount, fee, earnings)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrTransactionTerminal
	}
	after, err := u.transactions.FindByID(ctx, qx, id)
	if err != nil {
		return nil, err
	}
	u.audit.Log(ctx, actorFrom(ctx), "transaction.adjust", "transaction", id, model.AuditCategoryPayment, map[string]interface{}{
		"amount_before": before.Amount,
		"amount_after":  after.Amount,
		"status":        string(after.Status),
	})
	return after, nil
}

// IsConflict reports whether the error is any of the ledger's state-machine
// conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, domain.ErrConflict)
}
