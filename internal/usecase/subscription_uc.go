package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase renews and cancels recurring mentor subscriptions.
// Renewal is exactly-once per period: the period advance is a conditional
// update on next_payment_date, so a retried renewal job cannot double-charge.
type SubscriptionUseCase interface {
	// Renew charges one more period if it is due. The second call for the
	// same period is a no-op with renewed=false.
	Renew(ctx context.Context, subscriptionID string) (sub *model.Subscription, renewed bool, err error)
	// Cancel marks the subscription cancelled with a timestamp and reason.
	// The current period is not retroactively refunded.
	Cancel(ctx context.Context, actor, subscriptionID, reason string) (*model.Subscription, error)
	// RenewDue sweeps all due subscriptions; safe to re-run from scratch.
	RenewDue(ctx context.Context, limit int) (int, error)
}

type subscriptionUC struct {
	subscriptions repository.SubscriptionRepository
	ledger        LedgerUseCase
	tm            repository.TransactionManager
	audit         AuditUseCase
	currency      string
	log           *zerolog.Logger
}

func NewSubscriptionUseCase(subscriptions repository.SubscriptionRepository, ledger LedgerUseCase, tm repository.TransactionManager, audit AuditUseCase, currency string, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subscriptions: subscriptions, ledger: ledger, tm: tm, audit: audit, currency: currency, log: logger}
}

func (u *subscriptionUC) Renew(ctx context.Context, subscriptionID string) (*model.Subscription, bool, error) {
	s, err := u.subscriptions.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return nil, false, err
	}
	if s.Status != model.SubscriptionStatusActive {
		return nil, false, domain.ErrConflict
	}
	now := time.Now()
	if now.Before(s.NextPaymentDate) {
		// not due yet
		return s, false, nil
	}

	var renewed *model.Subscription
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
		periodStart := s.NextPaymentDate
		periodEnd := periodStart.AddDate(0, 0, model.PeriodDays)
		ok, err := u.subscriptions.AdvancePeriod(ctx, qx, s.ID, now, periodEnd, periodStart, periodEnd)
		if err != nil {
			return err
		}
		if !ok {
			// another worker already advanced this period
			return domain.ErrRenewalNotDue
		}
		t, err := u.ledger.Create(ctx, qx, CreateTransactionParams{
			SessionID:      s.ID, // renewal charges reference the subscription
			MentorID:       s.MentorID,
			MenteeID:       s.MenteeID,
			PricingModelID: s.PricingModelID,
			Kind:           model.TransactionKindCharge,
			Amount:         s.Amount,
			Currency:       s.Currency,
			PaymentMethod:  "subscription_renewal",
		})
		if err != nil {
			return err
		}
		if _, _, err := u.ledger.Complete(ctx, qx, t.ID, ""); err != nil {
			return err
		}
		cp := *s
		cp.NextPaymentDate = periodEnd
		cp.CurrentPeriodStart = periodStart
		cp.CurrentPeriodEnd = periodEnd
		cp.UpdatedAt = now
		renewed = &cp
		return nil
	})
	if err != nil {
		if err == domain.ErrRenewalNotDue {
			fresh, ferr := u.subscriptions.FindByID(ctx, repository.NoTX, subscriptionID)
			if ferr != nil {
				return nil, false, ferr
			}
			return fresh, false, nil
		}
		return nil, false, err
	}

	u.audit.Log(ctx, actorFrom(ctx), "subscription.renew", "subscription", s.ID, model.AuditCategoryPayment, map[string]interface{}{
		"amount":            s.Amount,
		"next_payment_date": renewed.NextPaymentDate,
	})
	return renewed, true, nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, actor, subscriptionID, reason string) (*model.Subscription, error) {
	s, err := u.subscriptions.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return nil, err
	}
	if actor != "" && actor != s.MenteeID && actor != s.MentorID {
		return nil, domain.ErrNotAllowed
	}
	now := time.Now()
	ok, err := u.subscriptions.Cancel(ctx, repository.NoTX, subscriptionID, reason, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrConflict
	}
	s.Status = model.SubscriptionStatusCancelled
	s.CancelledAt = &now
	s.CancelReason = reason
	u.audit.Log(ctx, actor, "subscription.cancel", "subscription", s.ID, model.AuditCategoryPayment, map[string]interface{}{
		"reason": reason,
	})
	return s, nil
}

func (u *subscriptionUC) RenewDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	due, err := u.subscriptions.ListDue(ctx, repository.NoTX, time.Now(), limit)
	if err != nil {
		if err == domain.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, s := range due {
		if _, renewed, err := u.Renew(ctx, s.ID); err != nil {
			u.log.Error().Err(err).Str("subscription_id", s.ID).Msg("renewal failed")
			continue
		} else if renewed {
			n++
		}
	}
	return n, nil
}
