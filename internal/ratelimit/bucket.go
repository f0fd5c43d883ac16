package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Quota is the admission budget bound to one identity. The Unlimited flag is
// an explicit bypass: unlimited identities never touch a bucket.
type Quota struct {
	PerMinute int
	Unlimited bool
}

// PerMinute builds a bounded quota of n requests per minute.
func PerMinute(n int) Quota { return Quota{PerMinute: n} }

// Unlimited is the bypass quota.
var Unlimited = Quota{Unlimited: true}

// Bucket tracks the remaining budget of one identity using the token-bucket
// algorithm. Refill is lazy: every operation first credits the tokens earned
// since the last refill, capped at capacity. All state is guarded by mu so
// two concurrent consumers can never spend the same token twice.
type Bucket struct {
	mu          sync.Mutex
	capacity    float64
	tokens      float64
	refillPerMs float64
	lastRefill  time.Time
	lastAccess  time.Time
}

// newBucket builds a full bucket sized to perMinute requests. A fresh
// identity is never pre-throttled.
func newBucket(perMinute int, now time.Time) *Bucket {
	capacity := float64(perMinute)
	return &Bucket{
		capacity:    capacity,
		tokens:      capacity,
		refillPerMs: capacity / 60000.0,
		lastRefill:  now,
		lastAccess:  now,
	}
}

// refill credits tokens earned since the last refill. Caller holds mu.
func (b *Bucket) refill(now time.Time) {
	elapsed := float64(now.Sub(b.lastRefill).Milliseconds())
	if elapsed <= 0 {
		return
	}
	b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillPerMs)
	b.lastRefill = now
}

// TryConsume refills, then takes one token if at least one is available.
// On failure the balance is left untouched.
func (b *Bucket) TryConsume(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	b.lastAccess = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Available refills, then reports the number of whole tokens left.
func (b *Bucket) Available(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	return int(b.tokens)
}

// RetryAfter reports how many whole seconds remain until the next token is
// available, or zero when one already is.
func (b *Bucket) RetryAfter(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	if b.tokens >= 1 {
		return 0
	}
	return int(math.Ceil((1 - b.tokens) / b.refillPerMs / 1000.0))
}

// IsIdle reports whether the bucket has not been consumed from for longer
// than threshold. The eviction sweep uses this to drop abandoned buckets.
func (b *Bucket) IsIdle(now time.Time, threshold time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastAccess) > threshold
}
