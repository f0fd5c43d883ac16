package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one admission check. Limit and Remaining are -1
// for unlimited identities, which carry no rate-limit metadata.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int   // seconds until the next token, set on denial
	Reset      int64 // unix seconds when a token is next available
}

// Registry owns the per-identity buckets. Lookups and racing inserts go
// through a sync.Map so request handling never takes a global lock; the
// LoadOrStore contract guarantees two concurrent creators converge on one
// bucket. An eviction sweep runs on its own goroutine for the lifetime of
// the registry and drops buckets idle for longer than the threshold.
type Registry struct {
	buckets sync.Map // string -> *Bucket

	now        func() time.Time
	sweepEvery time.Duration
	idleAfter  time.Duration
	onSweep    func(active int)

	done      chan struct{}
	closeOnce sync.Once
}

// RegistryOption configures Registry behavior.
type RegistryOption func(*Registry)

// WithRegistryClock overrides the time source (useful for tests).
func WithRegistryClock(fn func() time.Time) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.now = fn
		}
	}
}

// WithSweepInterval overrides how often idle buckets are evicted.
func WithSweepInterval(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.sweepEvery = d
		}
	}
}

// WithIdleThreshold overrides how long a bucket may sit unused before the
// sweep removes it.
func WithIdleThreshold(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleAfter = d
		}
	}
}

// WithSweepObserver registers a callback invoked after every sweep with the
// number of buckets still alive. Used to feed the active-buckets gauge.
func WithSweepObserver(fn func(active int)) RegistryOption {
	return func(r *Registry) { r.onSweep = fn }
}

// NewRegistry constructs a registry and starts its eviction sweep. The
// caller owns the lifecycle and must Close it on shutdown.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		now:        time.Now,
		sweepEvery: 5 * time.Minute,
		idleAfter:  10 * time.Minute,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.sweepLoop()
	return r
}

// Check admits or denies one request for the identity key under the given
// quota. Unlimited quotas bypass bucket accounting entirely.
func (r *Registry) Check(key string, q Quota) Decision {
	if q.Unlimited {
		return Decision{Allowed: true, Limit: -1, Remaining: -1}
	}
	now := r.now()
	b := r.bucket(key, q, now)
	allowed := b.TryConsume(now)
	retry := b.RetryAfter(now)
	dec := Decision{
		Allowed:   allowed,
		Limit:     q.PerMinute,
		Remaining: b.Available(now),
		Reset:     now.Unix() + int64(retry),
	}
	if !allowed {
		dec.RetryAfter = retry
	}
	return dec
}

func (r *Registry) bucket(key string, q Quota, now time.Time) *Bucket {
	if v, ok := r.buckets.Load(key); ok {
		return v.(*Bucket)
	}
	v, _ := r.buckets.LoadOrStore(key, newBucket(q.PerMinute, now))
	return v.(*Bucket)
}

// Size reports the current number of live buckets.
func (r *Registry) Size() int {
	n := 0
	r.buckets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the eviction sweep. Safe to call more than once.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.sweep(r.now())
		}
	}
}

// sweep drops every bucket idle beyond the threshold and returns how many
// were removed. A request racing the sweep either consumes from the bucket
// before removal or transparently recreates it on its next check.
func (r *Registry) sweep(now time.Time) int {
	removed := 0
	r.buckets.Range(func(key, v any) bool {
		if v.(*Bucket).IsIdle(now, r.idleAfter) {
			r.buckets.Delete(key)
			removed++
		}
		return true
	})
	if r.onSweep != nil {
		r.onSweep(r.Size())
	}
	return removed
}
