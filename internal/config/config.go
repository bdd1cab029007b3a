package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type GatewayConfig struct {
	KeyID         string `yaml:"key_id"`
	KeySecret     string `yaml:"key_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// BillingConfig holds the money rules shared by every pricing path.
// FeeBasisPoints is the single authoritative platform fee rate.
type BillingConfig struct {
	FeeBasisPoints    int    `yaml:"fee_basis_points"`
	Currency          string `yaml:"currency"`
	MinPayoutMinor    int64  `yaml:"min_payout_minor"`
	AutoPayoutEnabled bool   `yaml:"auto_payout_enabled"`
}

type RiskConfig struct {
	MaxDailyAmountMinor   int64 `yaml:"max_daily_amount_minor"`
	MaxMonthlyAmountMinor int64 `yaml:"max_monthly_amount_minor"`
	SuspiciousAmountMinor int64 `yaml:"suspicious_amount_minor"`
	VelocityMaxPerHour    int   `yaml:"velocity_max_per_hour"`
	RejectScore           int   `yaml:"reject_score"`
}

type WorkerConfig struct {
	PayoutIntervalSec    int `yaml:"payout_interval_sec"`
	PayoutMaxAttempts    int `yaml:"payout_max_attempts"`
	RenewalIntervalSec   int `yaml:"renewal_interval_sec"`
	RetentionIntervalSec int `yaml:"retention_interval_sec"`
	RetentionGenericDays int `yaml:"retention_generic_days"`
	RetentionPaymentDays int `yaml:"retention_payment_days"`
	PoolWorkers          int `yaml:"pool_workers"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Billing  BillingConfig  `yaml:"billing"`
	Risk     RiskConfig     `yaml:"risk"`
	Worker   WorkerConfig   `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Gateway.TimeoutSec <= 0 {
		cfg.Gateway.TimeoutSec = 15
	}
	if cfg.Billing.FeeBasisPoints <= 0 {
		cfg.Billing.FeeBasisPoints = 1500 // 15%
	}
	if cfg.Billing.Currency == "" {
		cfg.Billing.Currency = "USD"
	}
	if cfg.Billing.MinPayoutMinor <= 0 {
		cfg.Billing.MinPayoutMinor = 1000 // 10 currency units
	}
	if cfg.Risk.MaxDailyAmountMinor <= 0 {
		cfg.Risk.MaxDailyAmountMinor = 100_000
	}
	if cfg.Risk.MaxMonthlyAmountMinor <= 0 {
		cfg.Risk.MaxMonthlyAmountMinor = 1_000_000
	}
	if cfg.Risk.SuspiciousAmountMinor <= 0 {
		cfg.Risk.SuspiciousAmountMinor = 50_000
	}
	if cfg.Risk.VelocityMaxPerHour <= 0 {
		cfg.Risk.VelocityMaxPerHour = 5
	}
	if cfg.Risk.RejectScore <= 0 {
		cfg.Risk.RejectScore = 70
	}
	if cfg.Worker.PayoutIntervalSec <= 0 {
		cfg.Worker.PayoutIntervalSec = 60
	}
	if cfg.Worker.PayoutMaxAttempts <= 0 {
		cfg.Worker.PayoutMaxAttempts = 3
	}
	if cfg.Worker.RenewalIntervalSec <= 0 {
		cfg.Worker.RenewalIntervalSec = 300
	}
	if cfg.Worker.RetentionIntervalSec <= 0 {
		cfg.Worker.RetentionIntervalSec = 3600
	}
	if cfg.Worker.RetentionGenericDays <= 0 {
		cfg.Worker.RetentionGenericDays = 90
	}
	if cfg.Worker.RetentionPaymentDays <= 0 {
		cfg.Worker.RetentionPaymentDays = 2555 // ~7 years
	}
	if cfg.Worker.PoolWorkers <= 0 {
		cfg.Worker.PoolWorkers = 4
	}
}

func (c WorkerConfig) PayoutInterval() time.Duration {
	return time.Duration(c.PayoutIntervalSec) * time.Second
}

func (c WorkerConfig) RenewalInterval() time.Duration {
	return time.Duration(c.RenewalIntervalSec) * time.Second
}

func (c WorkerConfig) RetentionInterval() time.Duration {
	return time.Duration(c.RetentionIntervalSec) * time.Second
}

func (c GatewayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
