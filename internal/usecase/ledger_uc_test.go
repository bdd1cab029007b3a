//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
	"mentor-payments-core/internal/usecase"
)

func newLedger(txRepo *MockTransactionRepo, audit *MockAuditRepo, feeBps int) usecase.LedgerUseCase {
	logger := newTestLogger()
	return usecase.NewLedgerUseCase(txRepo, usecase.NewAuditUseCase(audit, logger), feeBps, logger)
}

func chargeParams(amount int64) usecase.CreateTransactionParams {
	return usecase.CreateTransactionParams{
		SessionID: "sess-1",
		MentorID:  "mentor-1",
		MenteeID:  "mentee-1",
		Amount:    amount,
		Currency:  "USD",
	}
}

func TestLedgerUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should split the fee exactly", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		audit := NewMockAuditRepo()
		uc := newLedger(txRepo, audit, 1500)

		// amounts chosen so the raw percentage is fractional
		for _, amount := range []int64{2500, 333, 1, 99999} {
			// --- Act ---
			tx, err := uc.Create(ctx, repository.NoTX, chargeParams(amount))

			// --- Assert ---
			if err != nil {
				t.Fatalf("amount %d: expected no error, got: %v", amount, err)
			}
			if tx.PlatformFee+tx.MentorEarnings != tx.Amount {
				t.Errorf("amount %d: fee %d + earnings %d != amount", amount, tx.PlatformFee, tx.MentorEarnings)
			}
			if tx.Status != model.TransactionStatusPending {
				t.Errorf("expected pending transaction, got %q", tx.Status)
			}
			if tx.Kind != model.TransactionKindCharge {
				t.Errorf("expected the kind to default to charge, got %q", tx.Kind)
			}
		}
	})

	t.Run("should split negative adjustment amounts symmetrically", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		uc := newLedger(txRepo, NewMockAuditRepo(), 1500)
		p := chargeParams(-1250)
		p.Kind = model.TransactionKindAdjustment

		// --- Act ---
		tx, err := uc.Create(ctx, repository.NoTX, p)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if tx.PlatformFee != -188 || tx.MentorEarnings != -1062 {
			t.Errorf("expected fee -188 and earnings -1062, got %d and %d", tx.PlatformFee, tx.MentorEarnings)
		}
		if tx.PlatformFee+tx.MentorEarnings != tx.Amount {
			t.Error("fee split invariant broken for negative amount")
		}
	})

	t.Run("should reject missing participant ids", func(t *testing.T) {
		// --- Arrange ---
		uc := newLedger(NewMockTransactionRepo(), NewMockAuditRepo(), 1500)
		p := chargeParams(2500)
		p.MentorID = ""

		// --- Act ---
		_, err := uc.Create(ctx, repository.NoTX, p)

		// --- Assert ---
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got: %v", err)
		}
	})

	t.Run("should write a payment audit entry", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		audit := NewMockAuditRepo()
		uc := newLedger(txRepo, audit, 1500)

		// --- Act ---
		if _, err := uc.Create(ctx, repository.NoTX, chargeParams(2500)); err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}

		// --- Assert ---
		if len(audit.Entries) != 1 || audit.Entries[0].Action != "transaction.create" {
			t.Fatalf("expected one transaction.create audit entry, got %v", audit.Actions())
		}
		if audit.Entries[0].Category != model.AuditCategoryPayment {
			t.Errorf("expected payment category, got %q", audit.Entries[0].Category)
		}
	})
}

func TestLedgerUseCase_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("should complete a pending transaction once", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		uc := newLedger(txRepo, NewMockAuditRepo(), 1500)
		tx, _ := uc.Create(ctx, repository.NoTX, chargeParams(2500))

		// --- Act ---
		completed, transitioned, err := uc.Complete(ctx, repository.NoTX, tx.ID, "pay-1")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if !transitioned {
			t.Error("expected the first completion to report the transition")
		}
		if completed.Status != model.TransactionStatusCompleted {
			t.Errorf("expected completed, got %q", completed.Status)
		}
		if completed.GatewayPayID != "pay-1" {
			t.Errorf("expected gateway payment id, got %q", completed.GatewayPayID)
		}
		if completed.CompletedAt == nil {
			t.Error("expected completed_at to be set")
		}
	})

	t.Run("should treat a replayed completion as a no-op", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		uc := newLedger(txRepo, NewMockAuditRepo(), 1500)
		tx, _ := uc.Create(ctx, repository.NoTX, chargeParams(2500))
		if _, _, err := uc.Complete(ctx, repository.NoTX, tx.ID, "pay-1"); err != nil {
			t.Fatalf("first complete: %v", err)
		}

		// --- Act ---
		again, transitioned, err := uc.Complete(ctx, repository.NoTX, tx.ID, "pay-2")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected replay to be tolerated, got: %v", err)
		}
		if transitioned {
			t.Error("expected the replay to report no transition")
		}
		if again.GatewayPayID != "pay-1" {
			t.Errorf("expected the original payment id to be kept, got %q", again.GatewayPayID)
		}
	})

	t.Run("should complete a negative adjustment", func(t *testing.T) {
		// --- Arrange --- a settled-short session posts a negative delta
		txRepo := NewMockTransactionRepo()
		uc := newLedger(txRepo, NewMockAuditRepo(), 1500)
		p := chargeParams(-1250)
		p.Kind = model.TransactionKindAdjustment
		tx, err := uc.Create(ctx, repository.NoTX, p)
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		// --- Act ---
		completed, transitioned, err := uc.Complete(ctx, repository.NoTX, tx.ID, "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if !transitioned || completed.Status != model.TransactionStatusCompleted {
			t.Errorf("expected a completed adjustment, got %q (transitioned=%v)", completed.Status, transitioned)
		}
		if completed.Amount != -1250 {
			t.Errorf("expected the negative amount to be preserved, got %d", completed.Amount)
		}
	})

	t.Run("should conflict when completing a failed transaction", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		uc := newLedger(txRepo, NewMockAuditRepo(), 1500)
		tx, _ := uc.Create(ctx, repository.NoTX, chargeParams(2500))
		if _, err := uc.Fail(ctx, repository.NoTX, tx.ID, "declined"); err != nil {
			t.Fatalf("fail: %v", err)
		}

		// --- Act ---
		_, _, err := uc.Complete(ctx, repository.NoTX, tx.ID, "pay-1")

		// --- Assert ---
		if !errors.Is(err, domain.ErrTransactionTerminal) {
			t.Fatalf("expected ErrTransactionTerminal, got: %v", err)
		}
	})
}

func TestLedgerUseCase_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("should refund a completed transaction exactly once", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		uc := newLedger(txRepo, NewMockAuditRepo(), 1500)
		tx, _ := uc.Create(ctx, repository.NoTX, chargeParams(2500))
		if _, _, err := uc.Complete(ctx, repository.NoTX, tx.ID, "pay-1"); err != nil {
			t.Fatalf("complete: %v", err)
		}

		// --- Act ---
		refunded, err := uc.Refund(ctx, repository.NoTX, tx.ID)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if refunded.Status != model.TransactionStatusRefunded {
			t.Errorf("expected refunded, got %q", refunded.Status)
		}

		// A second refund is a conflict, never a silent success.
		if _, err := uc.Refund(ctx, repository.NoTX, tx.ID); !errors.Is(err, domain.ErrAlreadyRefunded) {
			t.Fatalf("expected ErrAlreadyRefunded, got: %v", err)
		}
	})

	t.Run("should conflict when refunding a pending transaction", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		uc := newLedger(txRepo, NewMockAuditRepo(), 1500)
		tx, _ := uc.Create(ctx, repository.NoTX, chargeParams(2500))

		// --- Act ---
		_, err := uc.Refund(ctx, repository.NoTX, tx.ID)

		// --- Assert ---
		if !errors.Is(err, domain.ErrTransactionTerminal) {
			t.Fatalf("expected ErrTransactionTerminal, got: %v", err)
		}
	})
}

func TestLedgerUseCase_Adjust(t *testing.T) {
	ctx := context.Background()

	t.Run("should recompute the split of a pending transaction", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		uc := newLedger(txRepo, NewMockAuditRepo(), 1500)
		tx, _ := uc.Create(ctx, repository.NoTX, chargeParams(2500))

		// --- Act ---
		adjusted, err := uc.Adjust(ctx, repository.NoTX, tx.ID, 3000)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if adjusted.Amount != 3000 || adjusted.PlatformFee != 450 || adjusted.MentorEarnings != 2550 {
			t.Errorf("unexpected split: amount=%d fee=%d earnings=%d", adjusted.Amount, adjusted.PlatformFee, adjusted.MentorEarnings)
		}
	})

	t.Run("should refuse to adjust a completed transaction", func(t *testing.T) {
		// --- Arrange ---
		txRepo := NewMockTransactionRepo()
		uc := newLedger(txRepo, NewMockAuditRepo(), 1500)
		tx, _ := uc.Create(ctx, repository.NoTX, chargeParams(2500))
		if _, _, err := uc.Complete(ctx, repository.NoTX, tx.ID, "pay-1"); err != nil {
			t.Fatalf("complete: %v", err)
		}

		// --- Act ---
		_, err := uc.Adjust(ctx, repository.NoTX, tx.ID, 3000)

		// --- Assert ---
		if !errors.Is(err, domain.ErrTransactionTerminal) {
			t.Fatalf("expected ErrTransactionTerminal, got: %v", err)
		}
	})
}
