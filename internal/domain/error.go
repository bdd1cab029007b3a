package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrConflict           = errors.New("conflicting state change")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotAllowed         = errors.New("actor not allowed")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Ledger state machine
	ErrTransactionTerminal = fmt.Errorf("transaction already in terminal state: %w", ErrConflict)
	ErrAlreadyRefunded     = fmt.Errorf("transaction already refunded: %w", ErrConflict)
	ErrUsageSettled        = fmt.Errorf("usage tracking already settled: %w", ErrConflict)
	ErrActiveSubscription  = fmt.Errorf("active subscription already exists: %w", ErrConflict)
	ErrRenewalNotDue       = fmt.Errorf("subscription renewal not due: %w", ErrConflict)
	ErrTransactionClaimed  = fmt.Errorf("transaction already claimed by a payout: %w", ErrConflict)
	ErrOverlappingSession  = fmt.Errorf("overlapping session for mentor: %w", ErrConflict)
)

// RiskRejection is returned when the risk engine declines a charge. It is a
// distinct type (not ErrInvalidArgument) so callers can present a different
// message than generic validation failures.
type RiskRejection struct {
	Reason string
	Score  int
}

func (e *RiskRejection) Error() string {
	return fmt.Sprintf("risk rejection: %s (score=%d)", e.Reason, e.Score)
}

// GatewayError wraps an upstream payment-processor failure, preserving the
// provider's original code and HTTP status.
type GatewayError struct {
	Code    string
	Status  int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error: %s (code=%s status=%d)", e.Message, e.Code, e.Status)
}
