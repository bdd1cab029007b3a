package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/adapter"
	"mentor-payments-core/internal/domain/ports/repository"
	"mentor-payments-core/internal/infra/metrics"
)

// AvailablePaymentMethods offered to the caller at initialization.
var AvailablePaymentMethods = []string{"card", "upi", "netbanking", "wallet"}

// Locker serializes hourly settlement per session across workers.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// PricingSummary is shown to the payer before confirmation.
type PricingSummary struct {
	Amount         int64  `json:"amount"`
	PlatformFee    int64  `json:"platform_fee"`
	MentorEarnings int64  `json:"mentor_earnings"`
	Currency       string `json:"currency"`
}

// InitializedPayment is the result of InitializePayment.
type InitializedPayment struct {
	Order            *adapter.Order     `json:"order"`
	Transaction      *model.Transaction `json:"transaction"`
	PricingSummary   PricingSummary     `json:"pricing_summary"`
	AvailableMethods []string           `json:"available_payment_methods"`
}

// Settlement is the result of settling an hourly session.
type Settlement struct {
	Charge     *model.Transaction `json:"charge"`
	Adjustment *model.Transaction `json:"adjustment,omitempty"`
	Usage      *model.UsageTracking `json:"usage_tracking"`
}

// Compile-time check
var _ BillingUseCase = (*billingUC)(nil)

// BillingUseCase is the facade exposed to the API layer: it drives a booked
// session through pricing validation, risk screening, order creation,
// confirmation, hourly settlement and refunds.
type BillingUseCase interface {
	InitializePayment(ctx context.Context, actor, sessionID, pricingModelID string, estimatedMinutes int) (*InitializedPayment, error)
	ConfirmPayment(ctx context.Context, actor, orderID, gatewayPaymentID, signature string) (*model.Transaction, error)
	SettleHourlySession(ctx context.Context, actor, sessionID string, actualMinutes int) (*Settlement, error)
	CancelHourlySession(ctx context.Context, actor, sessionID, reason string) (*model.UsageTracking, error)
	RefundTransaction(ctx context.Context, actor, transactionID string) (*model.Transaction, error)
	ProcessWebhook(ctx context.Context, payload []byte, signature string) error
}

// AutoPayoutFunc is invoked after a transaction completes when automatic
// payouts are enabled; wired to the worker pool at startup.
type AutoPayoutFunc func(transactionID string)

type billingUC struct {
	sessions   repository.SessionRepository
	pricing    repository.PricingModelRepository
	usage      repository.UsageRepository
	txRepo     repository.TransactionRepository
	registry   *Registry
	ledger     LedgerUseCase
	risk       RiskUseCase
	gateway    adapter.PaymentGateway
	tm         repository.TransactionManager
	audit      AuditUseCase
	locker     Locker
	autoPayout AutoPayoutFunc
	currency   string
	log        *zerolog.Logger
}

func NewBillingUseCase(
	sessions repository.SessionRepository,
	pricing repository.PricingModelRepository,
	usage repository.UsageRepository,
	txRepo repository.TransactionRepository,
	registry *Registry,
	ledger LedgerUseCase,
	risk RiskUseCase,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	audit AuditUseCase,
	locker Locker,
	currency string,
	logger *zerolog.Logger,
) *billingUC {
	return &billingUC{
		sessions: sessions, pricing: pricing, usage: usage, txRepo: txRepo,
		registry: registry, ledger: ledger, risk: risk, gateway: gateway,
		tm: tm, audit: audit, locker: locker, currency: currency, log: logger,
	}
}

// SetAutoPayout wires the post-completion hook; optional.
func (u *billingUC) SetAutoPayout(fn AutoPayoutFunc) { u.autoPayout = fn }

func (u *billingUC) InitializePayment(ctx context.Context, actor, sessionID, pricingModelID string, estimatedMinutes int) (*InitializedPayment, error) {
	session, err := u.sessions.FindByID(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, err
	}
	if actor != session.MenteeID {
		return nil, domain.ErrNotAllowed
	}
	pm, err := u.pricing.FindByID(ctx, repository.NoTX, pricingModelID)
	if err != nil {
		return nil, err
	}
	if !pm.IsActive || pm.MentorID != session.MentorID || pm.Type != session.PricingType {
		return nil, domain.ErrInvalidArgument
	}
	handler, err := u.registry.Handler(pm.Type)
	if err != nil {
		return nil, err
	}
	params := &BookingParams{Session: session, Pricing: pm, EstimatedMinutes: estimatedMinutes}
	if err := handler.ValidateBooking(ctx, repository.NoTX, params); err != nil {
		return nil, err
	}
	amount := handler.CalculateAmount(params)

	// Soft screening before the order is created; the hard cap is checked
	// again at commit time.
	if err := u.risk.Assess(ctx, session.MenteeID, amount, ""); err != nil {
		return nil, err
	}

	order, err := u.gateway.CreateOrder(ctx, amount, u.currency, sessionID, map[string]string{
		"session_id": sessionID,
		"mentor_id":  session.MentorID,
	})
	if err != nil {
		return nil, err
	}

	var tx *model.Transaction
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
		tx, err = u.ledger.Create(ctx, qx, CreateTransactionParams{
			SessionID:      session.ID,
			MentorID:       session.MentorID,
			MenteeID:       session.MenteeID,
			PricingModelID: pm.ID,
			Kind:           model.TransactionKindCharge,
			Amount:         amount,
			Currency:       u.currency,
			GatewayOrderID: order.ID,
		})
		if err != nil {
			return err
		}
		return handler.OnInitialized(ctx, qx, tx, params)
	})
	if err != nil {
		return nil, err
	}

	return &InitializedPayment{
		Order:       order,
		Transaction: tx,
		PricingSummary: PricingSummary{
			Amount:         tx.Amount,
			PlatformFee:    tx.PlatformFee,
			MentorEarnings: tx.MentorEarnings,
			Currency:       tx.Currency,
		},
		AvailableMethods: AvailablePaymentMethods,
	}, nil
}

func (u *billingUC) ConfirmPayment(ctx context.Context, actor, orderID, gatewayPaymentID, signature string) (*model.Transaction, error) {
	tx, err := u.txRepo.FindByGatewayOrderID(ctx, repository.NoTX, orderID)
	if err != nil {
		return nil, err
	}
	if actor != tx.MenteeID {
		return nil, domain.ErrNotAllowed
	}
	if !u.gateway.VerifyPaymentSignature(orderID, gatewayPaymentID, signature) {
		// A forged or corrupted signature fails the payment synchronously.
		if _, ferr := u.ledger.Fail(ctx, repository.NoTX, tx.ID, "signature verification failed"); ferr != nil && !IsConflict(ferr) {
			return nil, ferr
		}
		return nil, &domain.GatewayError{Code: "SIGNATURE_MISMATCH", Message: "payment signature verification failed"}
	}
	return u.completeFromGateway(ctx, tx, gatewayPaymentID)
}

// completeFromGateway is the shared commit path for synchronous confirmation
/// and webhook delivery. Tolerates at-least-once delivery: a replay of an
// already-completed transaction is a no-op.
func (u *billingUC) completeFromGateway(ctx context.Context, tx *model.Transaction, gatewayPayID string) (*model.Transaction, error) {
	if tx.Status == model.TransactionStatusCompleted {
		return tx, nil
	}
	if tx.Status != model.TransactionStatusPending {
		return nil, domain.ErrTransactionTerminal
	}

	// Authoritative hard-cap re-check closes the race window left by the
	// pre-order screening.
	if err := u.risk.ReserveSpend(ctx, tx.MenteeID, tx.Amount); err != nil {
		if _, ferr := u.ledger.Fail(ctx, repository.NoTX, tx.ID, "risk limit exceeded at commit"); ferr != nil && !IsConflict(ferr) {
			u.log.Error().Err(ferr).Str("transaction_id", tx.ID).Msg("failing risk-rejected transaction")
		}
		return nil, err
	}

	ptype, err := u.pricingTypeOf(ctx, tx)
	if err != nil {
		u.risk.ReleaseSpend(ctx, tx.MenteeID, tx.Amount)
		return nil, err
	}
	handler, err := u.registry.Handler(ptype)
	if err != nil {
		u.risk.ReleaseSpend(ctx, tx.MenteeID, tx.Amount)
		return nil, err
	}

	var (
		completed    *model.Transaction
		transitioned bool
	)
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
		completed, transitioned, err = u.ledger.Complete(ctx, qx, tx.ID, gatewayPayID)
		if err != nil {
			return err
		}
		if !transitioned {
			// A concurrent confirmation won; its handler effects stand.
			return nil
		}
		return handler.OnConfirmed(ctx, qx, completed)
	})
	if err != nil {
		u.risk.ReleaseSpend(ctx, tx.MenteeID, tx.Amount)
		return nil, err
	}
	if !transitioned {
		// The winner holds the reservation for this charge; ours would
		// double-count the payer's daily spend.
		u.risk.ReleaseSpend(ctx, tx.MenteeID, tx.Amount)
		return completed, nil
	}

	if u.autoPayout != nil && completed.Kind == model.TransactionKindCharge {
		u.autoPayout(completed.ID)
	}
	return completed, nil
}

// pricingTypeOf resolves the pricing type driving a transaction; renewal
// charges carry no session, so fall back to the model row.
func (u *billingUC) pricingTypeOf(ctx context.Context, tx *model.Transaction) (model.PricingType, error) {
	if tx.PricingModelID != "" {
		pm, err := u.pricing.FindByID(ctx, repository.NoTX, tx.PricingModelID)
		if err == nil {
			return pm.Type, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}
	s, err := u.sessions.FindByID(ctx, repository.NoTX, tx.SessionID)
	if err != nil {
		return "", err
	}
	return s.PricingType, nil
}

func (u *billingUC) SettleHourlySession(ctx context.Context, actor, sessionID string, actualMinutes int) (*Settlement, error) {
	if actualMinutes <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	session, err := u.sessions.FindByID(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, err
	}
	if actor != "" && actor != session.MentorID {
		return nil, domain.ErrNotAllowed
	}

	token, err := u.locker.TryLock(ctx, "settle:"+sessionID, 30*time.Second)
	if err != nil {
		return nil, domain.ErrConflict
	}
	defer func() { _ = u.locker.Unlock(ctx, "settle:"+sessionID, token) }()

	tracking, err := u.usage.FindBySessionID(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, err
	}
	charge, err := u.txRepo.FindByID(ctx, repository.NoTX, tracking.TransactionID)
	if err != nil {
		return nil, err
	}
	// Append-only settlement: the original charge stays completed at the
	// estimate and the delta is posted as a separate adjustment transaction.
	if charge.Status != model.TransactionStatusCompleted {
		return nil, domain.ErrConflict
	}

	actualAmount := model.HourlyAmount(tracking.HourlyRate, actualMinutes)
	delta := actualAmount - charge.Amount

	var adjustment *model.Transaction
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
		ok, err := u.usage.Settle(ctx, qx, tracking.ID, actualMinutes, actualAmount)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUsageSettled
		}
		if delta != 0 {
			parent := charge.ID
			adjustment, err = u.ledger.Create(ctx, qx, CreateTransactionParams{
				SessionID:      sessionID,
				MentorID:       charge.MentorID,
				MenteeID:       charge.MenteeID,
				PricingModelID: charge.PricingModelID,
				Kind:           model.TransactionKindAdjustment,
				Amount:         delta,
				Currency:       charge.Currency,
				PaymentMethod:  charge.PaymentMethod,
				ParentID:       &parent,
			})
			if err != nil {
				return err
			}
			if adjustment, _, err = u.ledger.Complete(ctx, qx, adjustment.ID, ""); err != nil {
				return err
			}
		}
		return u.sessions.MarkCompleted(ctx, qx, sessionID, actualMinutes, time.Now())
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveSettlementDelta(float64(delta) / 100)
	tracking.Status = model.UsageStatusCompleted
	tracking.ActualMinutes = &actualMinutes
	tracking.TotalCost = actualAmount
	u.audit.Log(ctx, actor, "usage.settle", "session", sessionID, model.AuditCategoryPayment, map[string]interface{}{
		"estimated_minutes": tracking.EstimatedMinutes,
		"actual_minutes":    actualMinutes,
		"estimate_amount":   charge.Amount,
		"actual_amount":     actualAmount,
		"adjustment":        delta,
	})
	return &Settlement{Charge: charge, Adjustment: adjustment, Usage: tracking}, nil
}

func (u *billingUC) CancelHourlySession(ctx context.Context, actor, sessionID, reason string) (*model.UsageTracking, error) {
	tracking, err := u.usage.FindBySessionID(ctx, repository.NoTX, sessionID)
	if err != nil {
		return nil, err
	}
	charge, err := u.txRepo.FindByID(ctx, repository.NoTX, tracking.TransactionID)
	if err != nil {
		return nil, err
	}
	if actor != "" && actor != charge.MenteeID && actor != charge.MentorID {
		return nil, domain.ErrNotAllowed
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
		ok, err := u.usage.Cancel(ctx, qx, tracking.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUsageSettled
		}
		switch charge.Status {
		case model.TransactionStatusPending:
			_, err = u.ledger.Fail(ctx, qx, charge.ID, "session cancelled: "+reason)
		case model.TransactionStatusCompleted:
			// Provisional charge was captured; return the money.
			if _, gerr := u.gateway.CreateRefund(ctx, charge.GatewayPayID, charge.Amount, map[string]string{"reason": reason}); gerr != nil {
				return gerr
			}
			_, err = u.ledger.Refund(ctx, qx, charge.ID)
		default:
			err = domain.ErrTransactionTerminal
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	tracking.Status = model.UsageStatusCancelled
	u.audit.Log(ctx, actor, "usage.cancel", "session", sessionID, model.AuditCategoryPayment, map[string]interface{}{
		"reason": reason,
	})
	return tracking, nil
}

func (u *billingUC) RefundTransaction(ctx context.Context, actor, transactionID string) (*model.Transaction, error) {
	tx, err := u.txRepo.FindByID(ctx, repository.NoTX, transactionID)
	if err != nil {
		return nil, err
	}
	if actor != "" && actor != tx.MenteeID {
		return nil, domain.ErrNotAllowed
	}
	if tx.Status == model.TransactionStatusRefunded {
		return nil, domain.ErrAlreadyRefunded
	}
	if tx.Status != model.TransactionStatusCompleted {
		return nil, domain.ErrTransactionTerminal
	}
	if _, err := u.gateway.CreateRefund(ctx, tx.GatewayPayID, tx.Amount, nil); err != nil {
		return nil, err
	}
	return u.ledger.Refund(ctx, repository.NoTX, tx.ID)
}

func (u *billingUC) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	if !u.gateway.VerifyWebhookSignature(payload, signature) {
		metrics.IncWebhook("invalid_signature")
		u.log.Warn().Msg("webhook signature verification failed; payload dropped")
		return domain.ErrNotAllowed
	}
	ev, err := u.gateway.ParseWebhook(payload)
	if err != nil {
		metrics.IncWebhook("malformed")
		u.log.Warn().Err(err).Msg("malformed webhook payload dropped")
		return nil
	}

	switch ev.Type {
	case adapter.WebhookPaymentCaptured, adapter.WebhookOrderPaid:
		tx, err := u.txRepo.FindByGatewayOrderID(ctx, repository.NoTX, ev.OrderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				metrics.IncWebhook("unknown_order")
				u.log.Warn().Str("order_id", ev.OrderID).Msg("webhook for unknown order dropped")
				return nil
			}
			return err
		}
		if _, err := u.completeFromGateway(ctx, tx, ev.PaymentID); err != nil {
			return err
		}
		metrics.IncWebhook(ev.Type)
		return nil

	case adapter.WebhookPaymentFailed:
		tx, err := u.txRepo.FindByGatewayOrderID(ctx, repository.NoTX, ev.OrderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				metrics.IncWebhook("unknown_order")
				return nil
			}
			return err
		}
		if _, err := u.ledger.Fail(ctx, repository.NoTX, tx.ID, ev.ErrorReason); err != nil && !IsConflict(err) {
			return err
		}
		metrics.IncWebhook(ev.Type)
		return nil

	case adapter.WebhookPaymentAuthorized:
		// Authorization precedes capture; nothing to record yet.
		metrics.IncWebhook(ev.Type)
		return nil

	default:
		metrics.IncWebhook("unrecognized")
		u.log.Info().Str("type", ev.Type).Msg("unrecognized webhook event dropped")
		return nil
	}
}
