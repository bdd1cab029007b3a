package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// SpendCounter keeps per-payer daily and monthly spend totals keyed by UTC
// date. Reserve runs as a single Lua script so the add-and-check cannot race
// between concurrent charges, and a breach of either cap rolls both adds back.
type SpendCounter struct {
	cli *redis.Client
}

func NewSpendCounter(c *Client) *SpendCounter {
	return &SpendCounter{cli: c.cli}
}

// luaReserve adds ARGV[1] to the daily (KEYS[1]) and monthly (KEYS[2])
// counters, sets the TTLs on first write, and rolls both adds back when
// either total would exceed its limit (ARGV[2], ARGV[3]).
var luaReserve = redis.NewScript(`
local daily = redis.call("INCRBY", KEYS[1], ARGV[1])
if daily == tonumber(ARGV[1]) then
	redis.call("EXPIRE", KEYS[1], ARGV[4])
end
local monthly = redis.call("INCRBY", KEYS[2], ARGV[1])
if monthly == tonumber(ARGV[1]) then
	redis.call("EXPIRE", KEYS[2], ARGV[5])
end
if daily > tonumber(ARGV[2]) or monthly > tonumber(ARGV[3]) then
	redis.call("DECRBY", KEYS[1], ARGV[1])
	redis.call("DECRBY", KEYS[2], ARGV[1])
	return 0
end
return 1`)

func (s *SpendCounter) Reserve(ctx context.Context, payerID string, amount, dailyLimit, monthlyLimit int64) (bool, error) {
	now := time.Now().UTC()
	keys := []string{dailySpendKey(payerID, now), monthlySpendKey(payerID, now)}
	// TTLs outlive the UTC period they count.
	res, err := luaReserve.Run(ctx, s.cli, keys,
		amount, dailyLimit, monthlyLimit,
		int((48 * time.Hour).Seconds()),
		int((35 * 24 * time.Hour).Seconds()),
	).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *SpendCounter) Release(ctx context.Context, payerID string, amount int64) error {
	now := time.Now().UTC()
	if err := s.cli.DecrBy(ctx, dailySpendKey(payerID, now), amount).Err(); err != nil {
		return err
	}
	return s.cli.DecrBy(ctx, monthlySpendKey(payerID, now), amount).Err()
}

func dailySpendKey(payerID string, day time.Time) string {
	return fmt.Sprintf("spend:%s:%s", payerID, day.Format("20060102"))
}

func monthlySpendKey(payerID string, day time.Time) string {
	return fmt.Sprintf("spend:%s:%s", payerID, day.Format("200601"))
}
