package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mentor-payments-core/internal/usecase"
)

// PayoutSettler periodically drains pending payouts: each one either
// completes or, after too many attempts, is marked failed so its claims are
// released. Covers crashes mid-settlement since SettlePending is idempotent.
type PayoutSettler struct {
	uc          usecase.PayoutUseCase
	interval    time.Duration
	batchSize   int
	maxAttempts int
	log         *zerolog.Logger
}

func NewPayoutSettler(uc usecase.PayoutUseCase, interval time.Duration, maxAttempts int, logger *zerolog.Logger) *PayoutSettler {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &PayoutSettler{uc: uc, interval: interval, batchSize: 50, maxAttempts: maxAttempts, log: logger}
}

func (w *PayoutSettler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PayoutSettler) tick(ctx context.Context) {
	settled, err := w.uc.SettlePending(ctx, w.batchSize, w.maxAttempts)
	if err != nil {
		w.log.Error().Err(err).Msg("payout settler sweep failed")
		return
	}
	if settled > 0 {
		w.log.Info().Int("settled", settled).Msg("payouts settled")
	}
}
