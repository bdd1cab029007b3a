package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
)

// AuditRetention prunes old audit entries. Payment and safety entries keep a
// multi-year horizon for tax and dispute purposes; generic entries are
// short-lived.
type AuditRetention struct {
	audit       repository.AuditLogRepository
	interval    time.Duration
	genericDays int
	paymentDays int
	log         *zerolog.Logger
}

func NewAuditRetention(audit repository.AuditLogRepository, interval time.Duration, genericDays, paymentDays int, logger *zerolog.Logger) *AuditRetention {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if genericDays <= 0 {
		genericDays = 90
	}
	if paymentDays <= 0 {
		paymentDays = 2555
	}
	return &AuditRetention{audit: audit, interval: interval, genericDays: genericDays, paymentDays: paymentDays, log: logger}
}

func (w *AuditRetention) Start(ctx context.Context) {
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

func (w *AuditRetention) tick(ctx context.Context) {
	now := time.Now().UTC()
	cutoffs := map[model.AuditCategory]time.Time{
		model.AuditCategoryGeneric: now.AddDate(0, 0, -w.genericDays),
		model.AuditCategoryPayment: now.AddDate(0, 0, -w.paymentDays),
		model.AuditCategorySafety:  now.AddDate(0, 0, -w.paymentDays),
	}
	for category, cutoff := range cutoffs {
		removed, err := w.audit.PurgeOlderThan(ctx, repository.NoTX, category, cutoff)
		if err != nil {
			w.log.Error().Err(err).Str("category", string(category)).Msg("audit purge failed")
			continue
		}
		if removed > 0 {
			w.log.Info().Int64("removed", removed).Str("category", string(category)).Msg("audit entries purged")
		}
	}
}
