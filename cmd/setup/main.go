package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"mentor-payments-core/internal/config"
	"mentor-payments-core/internal/domain/model"
	"mentor-payments-core/internal/infra/db/postgres"
)

// Creates the schema and, with -seed, a small predictable dataset for manual
// end-to-end testing.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	seed := flag.Bool("seed", false, "seed test data after creating the schema")
	wipe := flag.Bool("wipe", false, "truncate all tables first")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	log.Println("creating schema...")
	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("schema: %v", err)
	}

	if *wipe {
		log.Println("wiping existing data...")
		_, err = pool.Exec(ctx, `
			TRUNCATE
				transactions, sessions, pricing_models, usage_tracking,
				subscriptions, payouts, payout_items, audit_logs
			RESTART IDENTITY CASCADE;
		`)
		if err != nil {
			log.Fatalf("failed to truncate tables: %v", err)
		}
	}

	if *seed {
		log.Println("seeding test data...")
		seedTestData(ctx, pool)
	}

	log.Println("setup complete")
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id              UUID PRIMARY KEY,
    mentor_id       UUID NOT NULL,
    mentee_id       UUID NOT NULL,
    pricing_type    TEXT NOT NULL,
    agreed_price    BIGINT NOT NULL,
    scheduled_start TIMESTAMPTZ NOT NULL,
    scheduled_end   TIMESTAMPTZ NOT NULL,
    actual_start    TIMESTAMPTZ,
    actual_end      TIMESTAMPTZ,
    actual_minutes  INT,
    status          TEXT NOT NULL DEFAULT 'scheduled',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_sessions_mentor_window
    ON sessions (mentor_id, scheduled_start)
    WHERE status IN ('scheduled','in_progress');

CREATE TABLE IF NOT EXISTS pricing_models (
    id               UUID PRIMARY KEY,
    mentor_id        UUID NOT NULL,
    type             TEXT NOT NULL,
    price            BIGINT NOT NULL,
    duration_minutes INT NOT NULL DEFAULT 0,
    currency         TEXT NOT NULL,
    is_active        BOOLEAN NOT NULL DEFAULT TRUE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_pricing_models_mentor ON pricing_models (mentor_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS transactions (
    id                 UUID PRIMARY KEY,
    session_id         UUID NOT NULL,
    mentor_id          UUID NOT NULL,
    mentee_id          UUID NOT NULL,
    pricing_model_id   UUID,
    kind               TEXT NOT NULL DEFAULT 'charge',
    parent_id          UUID REFERENCES transactions(id),
    amount             BIGINT NOT NULL,
    platform_fee       BIGINT NOT NULL,
    mentor_earnings    BIGINT NOT NULL,
    currency           TEXT NOT NULL,
    status             TEXT NOT NULL DEFAULT 'pending',
    payment_method     TEXT NOT NULL DEFAULT '',
    gateway_order_id   TEXT NOT NULL DEFAULT '',
    gateway_payment_id TEXT NOT NULL DEFAULT '',
    failure_reason     TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at       TIMESTAMPTZ,
    CONSTRAINT chk_amount_split CHECK (amount = platform_fee + mentor_earnings)
);
CREATE INDEX IF NOT EXISTS idx_transactions_session ON transactions (session_id);
CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_gateway_order
    ON transactions (gateway_order_id) WHERE gateway_order_id <> '';
CREATE INDEX IF NOT EXISTS idx_transactions_mentee_created ON transactions (mentee_id, created_at);
CREATE INDEX IF NOT EXISTS idx_transactions_mentor_status ON transactions (mentor_id, status);

CREATE TABLE IF NOT EXISTS usage_tracking (
    id                UUID PRIMARY KEY,
    session_id        UUID NOT NULL UNIQUE,
    transaction_id    UUID NOT NULL REFERENCES transactions(id),
    estimated_minutes INT NOT NULL,
    actual_minutes    INT,
    hourly_rate       BIGINT NOT NULL,
    total_cost        BIGINT NOT NULL,
    status            TEXT NOT NULL DEFAULT 'active',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id                   UUID PRIMARY KEY,
    mentee_id            UUID NOT NULL,
    mentor_id            UUID NOT NULL,
    pricing_model_id     UUID NOT NULL,
    amount               BIGINT NOT NULL,
    currency             TEXT NOT NULL,
    status               TEXT NOT NULL DEFAULT 'active',
    start_date           TIMESTAMPTZ NOT NULL,
    next_payment_date    TIMESTAMPTZ NOT NULL,
    current_period_start TIMESTAMPTZ NOT NULL,
    current_period_end   TIMESTAMPTZ NOT NULL,
    cancelled_at         TIMESTAMPTZ,
    cancel_reason        TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_subscriptions_active_pair
    ON subscriptions (mentee_id, mentor_id) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_subscriptions_due
    ON subscriptions (next_payment_date) WHERE status = 'active';

CREATE TABLE IF NOT EXISTS payouts (
    id             UUID PRIMARY KEY,
    mentor_id      UUID NOT NULL,
    amount         BIGINT NOT NULL,
    currency       TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending',
    payout_method  TEXT NOT NULL DEFAULT '',
    failure_reason TEXT NOT NULL DEFAULT '',
    attempts       INT NOT NULL DEFAULT 0,
    processed_at   TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_payouts_mentor ON payouts (mentor_id, status);

CREATE TABLE IF NOT EXISTS payout_items (
    id             UUID PRIMARY KEY,
    payout_id      UUID NOT NULL REFERENCES payouts(id),
    transaction_id UUID NOT NULL UNIQUE REFERENCES transactions(id)
);

CREATE TABLE IF NOT EXISTS audit_logs (
    id          TEXT PRIMARY KEY,
    actor       TEXT NOT NULL DEFAULT '',
    action      TEXT NOT NULL,
    resource    TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    category    TEXT NOT NULL DEFAULT 'generic',
    details     JSONB,
    request_ip  TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs (resource, resource_id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_retention ON audit_logs (category, created_at);
`

// seedTestData creates one mentor with all three pricing shapes and one
// upcoming session per shape.
func seedTestData(ctx context.Context, pool *pgxpool.Pool) {
	mentorID := uuid.NewString()
	menteeID := uuid.NewString()
	now := time.Now().UTC()

	pricing := []*model.PricingModel{
		{ID: uuid.NewString(), MentorID: mentorID, Type: model.PricingTypeOneTime, Price: 2500, DurationMinutes: 60, Currency: "USD", IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.NewString(), MentorID: mentorID, Type: model.PricingTypeHourly, Price: 5000, Currency: "USD", IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: uuid.NewString(), MentorID: mentorID, Type: model.PricingTypeSubscription, Price: 20000, Currency: "USD", IsActive: true, CreatedAt: now, UpdatedAt: now},
	}
	const insertPricing = `
INSERT INTO pricing_models (id, mentor_id, type, price, duration_minutes, currency, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`
	for _, pm := range pricing {
		if _, err := pool.Exec(ctx, insertPricing, pm.ID, pm.MentorID, pm.Type, pm.Price, pm.DurationMinutes, pm.Currency, pm.IsActive, pm.CreatedAt, pm.UpdatedAt); err != nil {
			log.Printf("failed to seed pricing model %s: %v", pm.Type, err)
		}
	}

	const insertSession = `
INSERT INTO sessions (id, mentor_id, mentee_id, pricing_type, agreed_price, scheduled_start, scheduled_end, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,'scheduled',$8,$8);`
	for i, pm := range pricing {
		start := now.Add(time.Duration(24*(i+1)) * time.Hour)
		end := start.Add(time.Hour)
		if _, err := pool.Exec(ctx, insertSession, uuid.NewString(), mentorID, menteeID, pm.Type, pm.Price, start, end, now); err != nil {
			log.Printf("failed to seed session for %s: %v", pm.Type, err)
		}
	}

	log.Printf("seeded mentor=%s mentee=%s", mentorID, menteeID)
}
