package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mentor-payments-core/internal/usecase"
)

// RenewalWorker sweeps active subscriptions whose next payment date has
// passed and charges one more period. The period advance is a conditional
// update, so overlapping sweeps cannot double-charge.
type RenewalWorker struct {
	uc        usecase.SubscriptionUseCase
	interval  time.Duration
	batchSize int
	log       *zerolog.Logger
}

func NewRenewalWorker(uc usecase.SubscriptionUseCase, interval time.Duration, logger *zerolog.Logger) *RenewalWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RenewalWorker{uc: uc, interval: interval, batchSize: 100, log: logger}
}

func (w *RenewalWorker) Start(ctx context.Context) {
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

func (w *RenewalWorker) tick(ctx context.Context) {
	renewed, err := w.uc.RenewDue(ctx, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("renewal sweep failed")
		return
	}
	if renewed > 0 {
		w.log.Info().Int("renewed", renewed).Msg("subscriptions renewed")
	}
}
