package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
	"mentor-payments-core/internal/infra/metrics"
)

// EstimatedProcessingTime is returned to callers of RequestPayout; settlement
// itself happens out of band.
const EstimatedProcessingTime = 24 * time.Hour

// Compile-time check
var _ PayoutUseCase = (*payoutUC)(nil)

// PayoutUseCase batches completed, unclaimed mentor earnings into payouts and
// settles them. Claiming a transaction into a payout is a single conditional
// insert backed by a unique constraint, so no transaction is ever paid twice.
type PayoutUseCase interface {
	AvailableForPayout(ctx context.Context, mentorID string) (int64, error)
	RequestPayout(ctx context.Context, actor, mentorID string, amountMinor int64) (*model.Payout, time.Duration, error)
	// AutoPayout creates a single-transaction payout right after a session's
	// transaction completes. Idempotent against duplicate completion events.
	AutoPayout(ctx context.Context, transactionID string) (*model.Payout, error)
	GetEarnings(ctx context.Context, mentorID string) (*model.Earnings, error)
	TaxReport(ctx context.Context, mentorID string, year, month int) (*model.TaxReport, error)
	// SettlePending processes due payouts; either a payout completes or it
	// is marked failed, never partially. Safe to re-run if interrupted.
	SettlePending(ctx context.Context, limit, maxAttempts int) (settled int, err error)
}

type payoutUC struct {
	payouts      repository.PayoutRepository
	transactions repository.TransactionRepository
	tm           repository.TransactionManager
	audit        AuditUseCase
	minPayout    int64
	currency     string
	log          *zerolog.Logger
}

func NewPayoutUseCase(payouts repository.PayoutRepository, transactions repository.TransactionRepository, tm repository.TransactionManager, audit AuditUseCase, minPayoutMinor int64, currency string, logger *zerolog.Logger) *payoutUC {
	return &payoutUC{payouts: payouts, transactions: transactions, tm: tm, audit: audit, minPayout: minPayoutMinor, currency: currency, log: logger}
}

// AvailableForPayout nets unclaimed earnings against unclaimed settlement
// debits and never reports below zero: a mentor whose paid-out charge was
// later settled short owes the difference, which the next payout absorbs.
func (u *payoutUC) AvailableForPayout(ctx context.Context, mentorID string) (int64, error) {
	sum, err := u.transactions.SumUnclaimedCompleted(ctx, repository.NoTX, mentorID)
	if err != nil {
		return 0, err
	}
	if sum < 0 {
		sum = 0
	}
	return sum, nil
}

func (u *payoutUC) RequestPayout(ctx context.Context, actor, mentorID string, amountMinor int64) (*model.Payout, time.Duration, error) {
	if actor != "" && actor != mentorID {
		return nil, 0, domain.ErrNotAllowed
	}
	if amountMinor < u.minPayout {
		return nil, 0, domain.ErrInvalidArgument
	}

	var payout *model.Payout
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
		available, err := u.transactions.SumUnclaimedCompleted(ctx, qx, mentorID)
		if err != nil {
			return err
		}
		if amountMinor > available {
			return domain.ErrInvalidArgument
		}

		candidates, err := u.transactions.ListUnclaimedCompleted(ctx, qx, mentorID, 1000)
		if err != nil {
			return err
		}
		var (
			sum int64
			ids []string
		)
		// Outstanding settlement debits ride along with every payout so the
		// paid-out total never drifts above the net ledger.
		for _, t := range candidates {
			if t.MentorEarnings < 0 {
				ids = append(ids, t.ID)
				sum += t.MentorEarnings
			}
		}
		// Then oldest first, accumulate earnings until the request is covered.
		for _, t := range candidates {
			if t.MentorEarnings < 0 {
				continue
			}
			ids = append(ids, t.ID)
			sum += t.MentorEarnings
			if sum >= amountMinor {
				break
			}
		}
		if sum < amountMinor {
			return domain.ErrInvalidArgument
		}

		now := time.Now()
		payout = &model.Payout{
			ID:             uuid.NewString(),
			MentorID:       mentorID,
			Amount:         sum,
			Currency:       u.currency,
			TransactionIDs: ids,
			Status:         model.PayoutStatusPending,
			PayoutMethod:   "bank_transfer",
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return u.payouts.Create(ctx, qx, payout)
	})
	if err != nil {
		return nil, 0, err
	}

	metrics.IncPayout(string(model.PayoutStatusPending))
	u.audit.Log(ctx, actor, "payout.request", "payout", payout.ID, model.AuditCategoryPayment, map[string]interface{}{
		"mentor_id":    mentorID,
		"amount":       payout.Amount,
		"transactions": len(payout.TransactionIDs),
	})
	return payout, EstimatedProcessingTime, nil
}

func (u *payoutUC) AutoPayout(ctx context.Context, transactionID string) (*model.Payout, error) {
	t, err := u.transactions.FindByID(ctx, repository.NoTX, transactionID)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TransactionStatusCompleted || t.MentorEarnings <= 0 {
		return nil, domain.ErrConflict
	}
	// Cheap pre-check; the payout_items unique constraint is the real guard
	// against duplicate completion events.
	claimed, err := u.payouts.HasClaim(ctx, repository.NoTX, transactionID)
	if err != nil {
		return nil, err
	}
	if claimed {
		return nil, domain.ErrTransactionClaimed
	}

	var payout *model.Payout
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
		// Unclaimed settlement debits reduce this payout; if they exceed the
		// new earnings the payout waits for a later charge to absorb them.
		candidates, err := u.transactions.ListUnclaimedCompleted(ctx, qx, t.MentorID, 1000)
		if err != nil && err != domain.ErrNotFound {
			return err
		}
		amount := t.MentorEarnings
		ids := []string{t.ID}
		for _, c := range candidates {
			if c.MentorEarnings < 0 {
				ids = append(ids, c.ID)
				amount += c.MentorEarnings
			}
		}
		if amount <= 0 {
			return domain.ErrConflict
		}
		now := time.Now()
		payout = &model.Payout{
			ID:             uuid.NewString(),
			MentorID:       t.MentorID,
			Amount:         amount,
			Currency:       t.Currency,
			TransactionIDs: ids,
			Status:         model.PayoutStatusPending,
			PayoutMethod:   "bank_transfer",
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		return u.payouts.Create(ctx, qx, payout)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPayout(string(model.PayoutStatusPending))
	u.audit.Log(ctx, "", "payout.auto", "payout", payout.ID, model.AuditCategoryPayment, map[string]interface{}{
		"mentor_id":      t.MentorID,
		"transaction_id": t.ID,
		"amount":         payout.Amount,
	})
	return payout, nil
}

func (u *payoutUC) GetEarnings(ctx context.Context, mentorID string) (*model.Earnings, error) {
	total, err := u.transactions.SumCompletedEarnings(ctx, repository.NoTX, mentorID)
	if err != nil {
		return nil, err
	}
	available, err := u.AvailableForPayout(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	pending, err := u.payouts.SumPendingByMentor(ctx, repository.NoTX, mentorID)
	if err != nil {
		return nil, err
	}
	sessions, err := u.transactions.CountCompletedSessions(ctx, repository.NoTX, mentorID)
	if err != nil {
		return nil, err
	}
	return &model.Earnings{
		MentorID:           mentorID,
		TotalEarnings:      total,
		AvailableForPayout: available,
		PendingPayouts:     pending,
		SessionsCompleted:  sessions,
	}, nil
}

func (u *payoutUC) TaxReport(ctx context.Context, mentorID string, year, month int) (*model.TaxReport, error) {
	if year <= 0 || month < 0 || month > 12 {
		return nil, domain.ErrInvalidArgument
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	if month > 0 {
		from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0)
	}
	txs, err := u.transactions.ListCompletedByMentorBetween(ctx, repository.NoTX, mentorID, from, to)
	if err != nil && err != domain.ErrNotFound {
		return nil, err
	}
	report := &model.TaxReport{MentorID: mentorID, Year: year, Month: month}
	for _, t := range txs {
		completedAt := t.CreatedAt
		if t.CompletedAt != nil {
			completedAt = *t.CompletedAt
		}
		report.Lines = append(report.Lines, model.TaxReportLine{
			TransactionID:  t.ID,
			SessionID:      t.SessionID,
			CompletedAt:    completedAt,
			Amount:         t.Amount,
			PlatformFee:    t.PlatformFee,
			MentorEarnings: t.MentorEarnings,
		})
		report.TotalAmount += t.Amount
		report.TotalPlatformFee += t.PlatformFee
		report.TotalMentorEarnings += t.MentorEarnings
	}
	return report, nil
}

func (u *payoutUC) SettlePending(ctx context.Context, limit, maxAttempts int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	pending, err := u.payouts.ListPending(ctx, repository.NoTX, limit)
	if err != nil {
		if err == domain.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	settled := 0
	for _, p := range pending {
		ok, err := u.payouts.Complete(ctx, repository.NoTX, p.ID, time.Now())
		if err != nil {
			u.log.Error().Err(err).Str("payout_id", p.ID).Int("attempts", p.Attempts).Msg("payout settlement attempt failed")
			if ierr := u.payouts.IncrementAttempts(ctx, repository.NoTX, p.ID); ierr != nil {
				u.log.Error().Err(ierr).Str("payout_id", p.ID).Msg("attempt bump failed")
			}
			if p.Attempts+1 >= maxAttempts {
				// Status flip and claim release must land together, or a
				// crash in between leaves claims that can never be re-claimed
				// but still count as available.
				reason := err.Error()
				ferr := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, qx repository.Tx) error {
					_, merr := u.payouts.MarkFailed(ctx, qx, p.ID, reason)
					return merr
				})
				if ferr != nil {
					u.log.Error().Err(ferr).Str("payout_id", p.ID).Msg("mark failed errored")
					continue
				}
				metrics.IncPayout(string(model.PayoutStatusFailed))
				u.audit.Log(ctx, "", "payout.fail", "payout", p.ID, model.AuditCategoryPayment, map[string]interface{}{
					"reason":   reason,
					"attempts": p.Attempts + 1,
				})
			}
			continue
		}
		if !ok {
			// already settled by a concurrent sweep
			continue
		}
		settled++
		metrics.IncPayout(string(model.PayoutStatusCompleted))
		metrics.AddPayoutAmount(p.Currency, p.Amount)
		u.audit.Log(ctx, "", "payout.complete", "payout", p.ID, model.AuditCategoryPayment, map[string]interface{}{
			"mentor_id": p.MentorID,
			"amount":    p.Amount,
		})
	}
	return settled, nil
}
