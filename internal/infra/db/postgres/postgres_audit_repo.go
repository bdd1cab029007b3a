package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
)

var _ repository.AuditLogRepository = (*auditLogRepo)(nil)

type auditLogRepo struct{ pool *pgxpool.Pool }

func NewAuditLogRepo(pool *pgxpool.Pool) *auditLogRepo {
	return &auditLogRepo{pool: pool}
}

func (r *auditLogRepo) Save(ctx context.Context, qx repository.Tx, e *model.AuditLogEntry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO audit_logs (id, actor, action, resource, resource_id, category, details, request_ip, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`
	if _, err := execSQL(ctx, r.pool, qx, q,
		e.ID, e.Actor, e.Action, e.Resource, e.ResourceID, e.Category, details, e.RequestIP, e.CreatedAt); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *auditLogRepo) ListByResource(ctx context.Context, qx repository.Tx, resource, resourceID string, limit int) ([]*model.AuditLogEntry, error) {
	// ULID ids are lexicographically time-ordered, so ORDER BY id DESC is
	// newest-first without touching created_at.
	const q = `
SELECT id, actor, action, resource, resource_id, category, details, request_ip, created_at
  FROM audit_logs
 WHERE resource = $1 AND resource_id = $2
 ORDER BY id DESC
 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, qx, q, resource, resourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AuditLogEntry
	for rows.Next() {
		e := &model.AuditLogEntry{}
		var details []byte
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Resource, &e.ResourceID,
			&e.Category, &details, &e.RequestIP, &e.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, domain.ErrReadDatabaseRow
			}
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *auditLogRepo) PurgeOlderThan(ctx context.Context, qx repository.Tx, category model.AuditCategory, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM audit_logs WHERE category=$1 AND created_at < $2;`
	cmd, err := execSQL(ctx, r.pool, qx, q, category, cutoff)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}
