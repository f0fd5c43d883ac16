package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatsEvent describes the outcome of one admission decision.
type StatsEvent struct {
	Key     string
	Allowed bool
	Method  string
	Path    string
	At      time.Time
}

// StatsRecorder receives admission outcomes. Implementations must be cheap
// and must never fail the request path; callers ignore the returned error
// beyond logging.
type StatsRecorder interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// RedisStats aggregates admission counters in Redis: a cumulative total plus
// per-minute and per-key hashes with a TTL so abandoned keys age out.
type RedisStats struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisStatsOption configures RedisStats.
type RedisStatsOption func(*RedisStats)

// WithStatsPrefix overrides the key prefix.
func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStats) { s.prefix = strings.Trim(prefix, ":") }
}

// WithStatsTTL overrides the expiry applied to per-minute and per-key
// hashes. The cumulative total never expires.
func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStats) { s.ttl = d }
}

// NewRedisStats builds a recorder over the given client.
func NewRedisStats(rdb *redis.Client, opts ...RedisStatsOption) *RedisStats {
	s := &RedisStats{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record increments the counters for one decision. Nil receivers and nil
// clients are no-ops so the recorder can be wired unconditionally.
func (s *RedisStats) Record(ctx context.Context, ev StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	minuteKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, minuteKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, minuteKey, s.ttl)
	}

	if key := strings.TrimSpace(ev.Key); key != "" {
		keyKey := s.prefix + ":key:" + key
		pipe.HIncrBy(ctx, keyKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, keyKey, s.ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
