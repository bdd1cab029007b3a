package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mentor-payments-core/internal/domain"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*sessionRepo)(nil)

type sessionRepo struct{ pool *pgxpool.Pool }

func NewSessionRepo(pool *pgxpool.Pool) *sessionRepo {
	return &sessionRepo{pool: pool}
}

const sessionColumns = `id, mentor_id, mentee_id, pricing_type, agreed_price, scheduled_start, scheduled_end, actual_start, actual_end, actual_minutes, status, created_at, updated_at`

func scanSession(row pgx.Row) (*model.Session, error) {
	s := &model.Session{}
	if err := row.Scan(
		&s.ID, &s.MentorID, &s.MenteeID, &s.PricingType, &s.AgreedPrice,
		&s.ScheduledStart, &s.ScheduledEnd, &s.ActualStart, &s.ActualEnd,
		&s.ActualMinutes, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *sessionRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE id=$1`
	if _, inTx := qx.(pgx.Tx); inTx {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, qx, q+`;`, id)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) FindOverlapping(ctx context.Context, qx repository.Tx, mentorID string, start, end time.Time) ([]*model.Session, error) {
	// Half-open interval intersection: [start,end) against [scheduled_start,
	// scheduled_end).
	const q = `
SELECT ` + sessionColumns + `
  FROM sessions
 WHERE mentor_id = $1
   AND status IN ('scheduled','in_progress')
   AND scheduled_start < $3
   AND $2 < scheduled_end;`
	rows, err := queryRows(ctx, r.pool, qx, q, mentorID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, qx repository.Tx, id string, actualMinutes int, endedAt time.Time) error {
	const q = `
UPDATE sessions
   SET status = 'completed', actual_minutes = $2, actual_end = $3, updated_at = NOW()
 WHERE id = $1;`
	if _, err := execSQL(ctx, r.pool, qx, q, id, actualMinutes, endedAt); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

var _ repository.PricingModelRepository = (*pricingModelRepo)(nil)

type pricingModelRepo struct{ pool *pgxpool.Pool }

func NewPricingModelRepo(pool *pgxpool.Pool) *pricingModelRepo {
	return &pricingModelRepo{pool: pool}
}

const pricingModelColumns = `id, mentor_id, type, price, duration_minutes, currency, is_active, created_at, updated_at`

func scanPricingModel(row pgx.Row) (*model.PricingModel, error) {
	pm := &model.PricingModel{}
	if err := row.Scan(
		&pm.ID, &pm.MentorID, &pm.Type, &pm.Price, &pm.DurationMinutes,
		&pm.Currency, &pm.IsActive, &pm.CreatedAt, &pm.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return pm, nil
}

func (r *pricingModelRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.PricingModel, error) {
	const q = `SELECT ` + pricingModelColumns + ` FROM pricing_models WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPricingModel(row)
}

func (r *pricingModelRepo) ListActiveByMentor(ctx context.Context, qx repository.Tx, mentorID string) ([]*model.PricingModel, error) {
	const q = `SELECT ` + pricingModelColumns + ` FROM pricing_models WHERE mentor_id=$1 AND is_active ORDER BY created_at;`
	rows, err := queryRows(ctx, r.pool, qx, q, mentorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PricingModel
	for rows.Next() {
		pm, err := scanPricingModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}
