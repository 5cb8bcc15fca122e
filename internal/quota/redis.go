package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisManager tracks daily consumption in Redis so multiple instances share
// one counter per identity. Keys expire shortly after the day they cover.
// Redis errors fail open: composition is rate-limited, not safety-critical.
type RedisManager struct {
	rdb  *redis.Client
	flow string
	now  func() time.Time
}

// NewRedisManager creates a Redis-backed manager for one quota flow
// ("compose" or "assist"). If rdb is nil, all checks pass.
func NewRedisManager(rdb *redis.Client, flow string, now func() time.Time) *RedisManager {
	if now == nil {
		now = time.Now
	}
	return &RedisManager{rdb: rdb, flow: flow, now: now}
}

func (m *RedisManager) key(identity string) string {
	return fmt.Sprintf("scribe:quota:%s:%s:%s", m.flow, identity, dayKey(m.now()))
}

// consumeScript increments the day's used counter only while it is under the
// allowance, so concurrent consumers cannot overspend.
// KEYS[1] = counter key, ARGV[1] = allowance, ARGV[2] = TTL seconds
// Returns the used count after the call.
var consumeScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
local allowance = tonumber(ARGV[1])
if used < allowance then
    used = redis.call('INCR', KEYS[1])
end
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
return used
`)

func (m *RedisManager) Authorize(ctx context.Context, identity string, allowance int) (Result, error) {
	if m.rdb == nil {
		return Result{Allowed: true, Remaining: allowance}, nil
	}

	used, err := m.rdb.Get(ctx, m.key(identity)).Int()
	if err != nil && err != redis.Nil {
		// Fail open on Redis errors.
		return Result{Allowed: true, Remaining: allowance}, nil
	}

	remaining := allowance - used
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: remaining > 0, Remaining: remaining}, nil
}

func (m *RedisManager) Consume(ctx context.Context, identity string, allowance int) error {
	if m.rdb == nil {
		return nil
	}
	return consumeScript.Run(ctx, m.rdb, []string{m.key(identity)},
		allowance, int64(m.ttl().Seconds()),
	).Err()
}

// ttl keeps the counter alive until an hour past the end of the current day.
func (m *RedisManager) ttl() time.Duration {
	now := m.now()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return endOfDay.Sub(now) + time.Hour
}
