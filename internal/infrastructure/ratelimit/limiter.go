package ratelimit

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/repository"
	"github.com/gateward/gateward/internal/domain/service"
	"github.com/gateward/gateward/pkg/constants"
	"github.com/gateward/gateward/pkg/logger"
)

// FixedWindowLimiter implements service.RateLimitService with a fixed-window
// counter. The local WindowCache is authoritative within the process; the
// durable CounterStore is a best-effort, last-writer-wins mirror giving other
// processes a delayed view of usage. Exact global admission counts across
// processes are explicitly not guaranteed.
//
// Store faults fail open: an unreadable store counts as zero usage (only on
// cache miss), and a failed mirror write is logged and swallowed. A storage
// outage never denies a request.
type FixedWindowLimiter struct {
	cache        *WindowCache
	store        repository.CounterStore
	log          logger.Logger
	metrics      StoreMetrics
	sweepProb    float64
	storeTimeout time.Duration
	now          func() time.Time
	randFloat    func() float64
}

// StoreMetrics counts durable store faults by operation. May be nil.
type StoreMetrics interface {
	RecordStoreError(operation string)
}

var _ service.RateLimitService = (*FixedWindowLimiter)(nil)

// LimiterOption customizes the limiter.
type LimiterOption func(*FixedWindowLimiter)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *FixedWindowLimiter) { l.now = now }
}

// WithSweepProbability sets the per-call chance of sweeping expired counters
// from the durable store. 0 disables the sweep, 1 runs it on every call.
func WithSweepProbability(p float64) LimiterOption {
	return func(l *FixedWindowLimiter) { l.sweepProb = p }
}

// WithStoreTimeout bounds each durable store round trip.
func WithStoreTimeout(d time.Duration) LimiterOption {
	return func(l *FixedWindowLimiter) { l.storeTimeout = d }
}

// WithStoreMetrics attaches a store fault counter.
func WithStoreMetrics(m StoreMetrics) LimiterOption {
	return func(l *FixedWindowLimiter) { l.metrics = m }
}

// NewFixedWindowLimiter creates a limiter over the given cache and store.
func NewFixedWindowLimiter(
	cache *WindowCache,
	store repository.CounterStore,
	log logger.Logger,
	opts ...LimiterOption,
) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		cache:        cache,
		store:        store,
		log:          log.WithComponent("rate_limiter"),
		sweepProb:    constants.DefaultSweepProbability,
		storeTimeout: constants.DefaultStoreTimeout,
		now:          time.Now,
		randFloat:    rand.Float64,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check runs the fixed-window admission algorithm for key under policy.
func (l *FixedWindowLimiter) Check(ctx context.Context, key string, policy models.RateLimitPolicy) *models.RateLimitResult {
	now := l.now()

	// The store is consulted only on cache miss; the cache stays the
	// critical path.
	var fallback *models.WindowCounter
	if _, ok := l.cache.Peek(key, now); !ok {
		fallback = l.readStore(ctx, key, now.Add(-policy.Window))
	}

	counter, admitted := l.cache.Admit(key, fallback, policy, now)

	if !admitted {
		return &models.RateLimitResult{
			Allowed:           false,
			Limit:             policy.MaxRequests,
			Remaining:         0,
			ResetAt:           now.Add(policy.Window),
			RetryAfterSeconds: retryAfterSeconds(policy.Window),
		}
	}

	l.mirrorWrite(ctx, &counter)
	l.maybeSweep(now)

	remaining := policy.MaxRequests - int(counter.Count)
	if remaining < 0 {
		remaining = 0
	}
	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     policy.MaxRequests,
		Remaining: remaining,
		ResetAt:   now.Add(policy.Window),
	}
}

// Reset clears the counter for a key in both tiers.
func (l *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	l.cache.Delete(key)

	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()
	return l.store.Delete(sctx, key)
}

// readStore fetches the durable counter; unavailability degrades to nil
// (zero usage) per the fail-open policy.
func (l *FixedWindowLimiter) readStore(ctx context.Context, key string, windowStart time.Time) *models.WindowCounter {
	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	counter, err := l.store.Find(sctx, key, windowStart)
	if err != nil {
		l.recordStoreError("find")
		l.log.Warn(ctx, "counter store read failed, failing open",
			logger.String("key", key),
			logger.Err(err),
		)
		return nil
	}
	return counter
}

func (l *FixedWindowLimiter) recordStoreError(operation string) {
	if l.metrics != nil {
		l.metrics.RecordStoreError(operation)
	}
}

// mirrorWrite pushes the incremented counter to the durable store,
// last-writer-wins. Failures are logged and swallowed; they never affect the
// admission decision.
func (l *FixedWindowLimiter) mirrorWrite(ctx context.Context, counter *models.WindowCounter) {
	sctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	if err := l.store.Upsert(sctx, counter); err != nil {
		l.recordStoreError("upsert")
		l.log.Warn(ctx, "counter store mirror write failed",
			logger.String("key", counter.Key),
			logger.Err(err),
		)
	}
}

// maybeSweep deletes expired store rows on a low-probability trigger, keeping
// storage bounded without a dedicated scheduler. Housekeeping only, not
// correctness-critical.
func (l *FixedWindowLimiter) maybeSweep(now time.Time) {
	if l.sweepProb <= 0 || l.randFloat() >= l.sweepProb {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.storeTimeout)
	defer cancel()

	removed, err := l.store.DeleteExpired(ctx, now)
	if err != nil {
		l.recordStoreError("delete_expired")
		l.log.Warn(ctx, "expired counter sweep failed", logger.Err(err))
		return
	}
	if removed > 0 {
		l.log.Debug(ctx, "swept expired counters", logger.Int64("removed", removed))
	}
}

// retryAfterSeconds converts the window to whole seconds, rounded up, so a
// denied caller always waits at least a full window. Deterministic by policy.
func retryAfterSeconds(window time.Duration) int {
	return int(math.Ceil(window.Seconds()))
}
