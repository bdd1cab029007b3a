package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
)

// Compile-time check
var _ AuditUseCase = (*auditUC)(nil)

// AuditUseCase appends to the audit trail. A write failure is logged to the
// operational log but never propagated: audit must not roll back or fail the
// primary money operation.
type AuditUseCase interface {
	Log(ctx context.Context, actor, action, resource, resourceID string, category model.AuditCategory, details map[string]interface{})
	History(ctx context.Context, resource, resourceID string, limit int) ([]*model.AuditLogEntry, error)
}

type auditUC struct {
	repo repository.AuditLogRepository
	log  *zerolog.Logger
}

func NewAuditUseCase(repo repository.AuditLogRepository, logger *zerolog.Logger) *auditUC {
	return &auditUC{repo: repo, log: logger}
}

func (u *auditUC) Log(ctx context.Context, actor, action, resource, resourceID string, category model.AuditCategory, details map[string]interface{}) {
	entry := &model.AuditLogEntry{
		ID:         ulid.Make().String(),
		Actor:      actor,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Category:   category,
		Details:    details,
		CreatedAt:  time.Now(),
	}
	// Always written outside any open transaction: a failed INSERT inside the
	// caller's tx would poison it, and a declined attempt must still leave a
	// trail even when the surrounding operation rolls back.
	if err := u.repo.Save(ctx, repository.NoTX, entry); err != nil {
		u.log.Error().Err(err).
			Str("action", action).
			Str("resource", resource).
			Str("resource_id", resourceID).
			Msg("audit write failed")
	}
}

func (u *auditUC) History(ctx context.Context, resource, resourceID string, limit int) ([]*model.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	return u.repo.ListByResource(ctx, repository.NoTX, resource, resourceID, limit)
}
