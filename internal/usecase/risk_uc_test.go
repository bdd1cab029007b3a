//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"mentor-payments-core/internal/config"
	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
	"mentor-payments-core/internal/usecase"
)

var riskTestCfg = config.RiskConfig{
	MaxDailyAmountMinor:   1000,
	MaxMonthlyAmountMinor: 5000,
	SuspiciousAmountMinor: 500,
	VelocityMaxPerHour:    5,
	RejectScore:           70,
}

func newRisk(txRepo *MockTransactionRepo, counter *MockSpendCounter, audit *MockAuditRepo, cfg config.RiskConfig) usecase.RiskUseCase {
	logger := newTestLogger()
	return usecase.NewRiskUseCase(txRepo, counter, usecase.NewAuditUseCase(audit, logger), cfg, logger)
}

// seedCompleted records a completed charge for the payer so the daily and
// monthly sums see it.
func seedCompleted(txRepo *MockTransactionRepo, payerID string, amount int64, at time.Time) {
	completedAt := at
	txRepo.Save(context.Background(), repository.NoTX, &model.Transaction{
		ID: uuid.NewString(), SessionID: "sess", MentorID: "mentor-1", MenteeID: payerID,
		Kind: model.TransactionKindCharge, Amount: amount,
		Status: model.TransactionStatusCompleted, CreatedAt: at, CompletedAt: &completedAt,
	})
}

// seedAttempt records a pending charge; it counts toward velocity but not
// toward spend.
func seedAttempt(txRepo *MockTransactionRepo, payerID string, at time.Time) {
	txRepo.Save(context.Background(), repository.NoTX, &model.Transaction{
		ID: uuid.NewString(), SessionID: "sess", MentorID: "mentor-1", MenteeID: payerID,
		Kind: model.TransactionKindCharge, Amount: 100,
		Status: model.TransactionStatusPending, CreatedAt: at,
	})
}

func TestRiskUseCase_Assess(t *testing.T) {
	ctx := context.Background()

	t.Run("should allow a charge exactly at the daily limit", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		seedCompleted(txRepo, "payer-1", 900, time.Now())
		uc := newRisk(txRepo, NewMockSpendCounter(), NewMockAuditRepo(), riskTestCfg)

		// --- Act --- spend 900 + charge 100 == limit 1000
		err := uc.Assess(ctx, "payer-1", 100, "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected the boundary charge to pass, got: %v", err)
		}
	})

	t.Run("should decline a charge one unit over the daily limit", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		seedCompleted(txRepo, "payer-1", 900, time.Now())
		audit := NewMockAuditRepo()
		uc := newRisk(txRepo, NewMockSpendCounter(), audit, riskTestCfg)

		// --- Act ---
		err := uc.Assess(ctx, "payer-1", 101, "")

		// --- Assert ---
		var rejection *domain.RiskRejection
		if !errors.As(err, &rejection) {
			t.Fatalf("expected a RiskRejection, got: %v", err)
		}
		if rejection.Reason != "daily limit exceeded" {
			t.Errorf("unexpected reason %q", rejection.Reason)
		}
		if len(audit.Entries) != 1 || audit.Entries[0].Category != model.AuditCategorySafety {
			t.Error("expected a safety audit entry for the declined charge")
		}
	})

	t.Run("should decline a charge over the monthly limit", func(t *testing.T) {
		// --- Arrange --- spread the spend over past days so the daily sum
		// stays low but the monthly sum is near the cap.
		txRepo := NewMockTransactionRepo()
		now := time.Now()
		startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		for i := 0; i < 5; i++ {
			day := startOfMonth.Add(time.Duration(i) * 26 * time.Hour)
			if day.After(now) {
				day = now.Add(-time.Duration(i+1) * time.Minute)
			}
			seedCompleted(txRepo, "payer-1", 990, day)
		}
		uc := newRisk(txRepo, NewMockSpendCounter(), NewMockAuditRepo(), riskTestCfg)

		// --- Act --- monthly spend 4950 + 100 > 5000
		err := uc.Assess(ctx, "payer-1", 100, "")

		// --- Assert ---
		var rejection *domain.RiskRejection
		if !errors.As(err, &rejection) {
			t.Fatalf("expected a RiskRejection, got: %v", err)
		}
	})

	t.Run("should pass a merely suspicious amount", func(t *testing.T) {
		// --- Arrange ---
		uc := newRisk(NewMockTransactionRepo(), NewMockSpendCounter(), NewMockAuditRepo(), riskTestCfg)

		// --- Act --- 501 > suspicious threshold scores 30, below reject 70
		err := uc.Assess(ctx, "payer-1", 501, "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected a suspicious amount alone to pass, got: %v", err)
		}
	})

	t.Run("should pass high velocity alone", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		for i := 0; i < 6; i++ {
			seedAttempt(txRepo, "payer-1", time.Now().Add(-time.Duration(i)*time.Minute))
		}
		uc := newRisk(txRepo, NewMockSpendCounter(), NewMockAuditRepo(), riskTestCfg)

		// --- Act --- velocity scores 40, below reject 70
		err := uc.Assess(ctx, "payer-1", 100, "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected high velocity alone to pass, got: %v", err)
		}
	})

	t.Run("should decline when suspicious amount and velocity combine", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		for i := 0; i < 6; i++ {
			seedAttempt(txRepo, "payer-1", time.Now().Add(-time.Duration(i)*time.Minute))
		}
		uc := newRisk(txRepo, NewMockSpendCounter(), NewMockAuditRepo(), riskTestCfg)

		// --- Act --- 30 + 40 >= 70
		err := uc.Assess(ctx, "payer-1", 501, "")

		// --- Assert ---
		var rejection *domain.RiskRejection
		if !errors.As(err, &rejection) {
			t.Fatalf("expected a RiskRejection, got: %v", err)
		}
		if rejection.Score != 70 {
			t.Errorf("expected score 70, got %d", rejection.Score)
		}
		if rejection.Reason != "high risk transaction" {
			t.Errorf("unexpected reason %q", rejection.Reason)
		}
	})
}

func TestRiskUseCase_ReserveSpend(t *testing.T) {
	ctx := context.Background()

	t.Run("should decline when the counter reports the cap exceeded", func(t *testing.T) {
		// --- Arrange ---
		counter := NewMockSpendCounter()
		uc := newRisk(NewMockTransactionRepo(), counter, NewMockAuditRepo(), riskTestCfg)
		if err := uc.ReserveSpend(ctx, "payer-1", 900); err != nil {
			t.Fatalf("first reserve: %v", err)
		}

		// --- Act --- 900 + 200 > 1000
		err := uc.ReserveSpend(ctx, "payer-1", 200)

		// --- Assert ---
		var rejection *domain.RiskRejection
		if !errors.As(err, &rejection) {
			t.Fatalf("expected a RiskRejection, got: %v", err)
		}
		// The declined amount must not have been added.
		if counter.totals["payer-1"] != 900 {
			t.Errorf("expected total to stay at 900, got %d", counter.totals["payer-1"])
		}
	})

	t.Run("should enforce the monthly cap at commit as well", func(t *testing.T) {
		// --- Arrange --- a generous daily cap, so only the monthly one binds
		counter := NewMockSpendCounter()
		uc := newRisk(NewMockTransactionRepo(), counter, NewMockAuditRepo(), config.RiskConfig{
			MaxDailyAmountMinor:   1_000_000,
			MaxMonthlyAmountMinor: 5000,
			SuspiciousAmountMinor: 500,
			VelocityMaxPerHour:    5,
			RejectScore:           70,
		})
		if err := uc.ReserveSpend(ctx, "payer-1", 4800); err != nil {
			t.Fatalf("first reserve: %v", err)
		}

		// --- Act --- 4800 + 300 > 5000
		err := uc.ReserveSpend(ctx, "payer-1", 300)

		// --- Assert ---
		var rejection *domain.RiskRejection
		if !errors.As(err, &rejection) {
			t.Fatalf("expected a RiskRejection, got: %v", err)
		}
		if counter.totals["payer-1"] != 4800 {
			t.Errorf("expected total to stay at 4800, got %d", counter.totals["payer-1"])
		}
	})

	t.Run("should let the screened decision stand when the counter is unreachable", func(t *testing.T) {
		// --- Arrange ---
		counter := NewMockSpendCounter()
		counter.ReserveErr = fmt.Errorf("connection refused")
		uc := newRisk(NewMockTransactionRepo(), counter, NewMockAuditRepo(), riskTestCfg)

		// --- Act ---
		err := uc.ReserveSpend(ctx, "payer-1", 900)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected a counter outage to be tolerated, got: %v", err)
		}
	})

	t.Run("should release a reservation after a failed charge", func(t *testing.T) {
		// --- Arrange ---
		counter := NewMockSpendCounter()
		uc := newRisk(NewMockTransactionRepo(), counter, NewMockAuditRepo(), riskTestCfg)
		if err := uc.ReserveSpend(ctx, "payer-1", 900); err != nil {
			t.Fatalf("reserve: %v", err)
		}

		// --- Act ---
		uc.ReleaseSpend(ctx, "payer-1", 900)

		// --- Assert ---
		if err := uc.ReserveSpend(ctx, "payer-1", 1000); err != nil {
			t.Fatalf("expected the full cap to be available again, got: %v", err)
		}
	})
}
