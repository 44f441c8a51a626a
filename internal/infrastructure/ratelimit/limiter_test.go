package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/infrastructure/persistence/memory"
	"github.com/gateward/gateward/internal/infrastructure/ratelimit"
	"github.com/gateward/gateward/pkg/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(t *testing.T, store *memory.CounterStore, opts ...ratelimit.LimiterOption) (*ratelimit.FixedWindowLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	base := []ratelimit.LimiterOption{
		ratelimit.WithClock(clock.Now),
		ratelimit.WithSweepProbability(0),
	}
	l := ratelimit.NewFixedWindowLimiter(
		ratelimit.NewWindowCache(), store, logger.NewNoopLogger(), append(base, opts...)...)
	return l, clock
}

func TestCheck_WindowBoundary(t *testing.T) {
	l, _ := newLimiter(t, memory.NewCounterStore())
	policy := models.RateLimitPolicy{Window: time.Second, MaxRequests: 3}

	for i := 0; i < 3; i++ {
		res := l.Check(context.Background(), "k", policy)
		assert.True(t, res.Allowed, "call %d should be admitted", i+1)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res := l.Check(context.Background(), "k", policy)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 3, res.Limit)
	assert.Equal(t, 1, res.RetryAfterSeconds)
}

func TestCheck_WindowRollover(t *testing.T) {
	l, clock := newLimiter(t, memory.NewCounterStore())
	policy := models.RateLimitPolicy{Window: time.Second, MaxRequests: 3}

	for i := 0; i < 3; i++ {
		require.True(t, l.Check(context.Background(), "k", policy).Allowed)
	}
	require.False(t, l.Check(context.Background(), "k", policy).Allowed)

	clock.Advance(1001 * time.Millisecond)

	res := l.Check(context.Background(), "k", policy)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestCheck_ConcreteScenario(t *testing.T) {
	// policy {window: 1s, max: 3}; calls at t=0,100,200 admitted with
	// remaining 2,1,0; t=300 denied with retry-after 1s; t=1001 admitted.
	l, clock := newLimiter(t, memory.NewCounterStore())
	policy := models.RateLimitPolicy{Window: time.Second, MaxRequests: 3}
	ctx := context.Background()

	steps := []struct {
		advance   time.Duration
		allowed   bool
		remaining int
	}{
		{0, true, 2},
		{100 * time.Millisecond, true, 1},
		{100 * time.Millisecond, true, 0},
		{100 * time.Millisecond, false, 0},
		{701 * time.Millisecond, true, 2},
	}
	for i, step := range steps {
		clock.Advance(step.advance)
		res := l.Check(ctx, "k", policy)
		assert.Equal(t, step.allowed, res.Allowed, "step %d", i)
		assert.Equal(t, step.remaining, res.Remaining, "step %d", i)
		if !step.allowed {
			assert.Equal(t, 1, res.RetryAfterSeconds, "step %d", i)
		}
	}
}

func TestCheck_KeysAreIndependent(t *testing.T) {
	l, _ := newLimiter(t, memory.NewCounterStore())
	policy := models.RateLimitPolicy{Window: time.Second, MaxRequests: 1}

	assert.True(t, l.Check(context.Background(), "a", policy).Allowed)
	assert.False(t, l.Check(context.Background(), "a", policy).Allowed)
	assert.True(t, l.Check(context.Background(), "b", policy).Allowed)
}

func TestCheck_MirrorsToStore(t *testing.T) {
	store := memory.NewCounterStore()
	l, clock := newLimiter(t, store)
	policy := models.RateLimitPolicy{Window: time.Minute, MaxRequests: 10}

	require.True(t, l.Check(context.Background(), "k", policy).Allowed)

	counter, err := store.Find(context.Background(), "k", clock.Now().Add(-policy.Window))
	require.NoError(t, err)
	require.NotNil(t, counter)
	assert.Equal(t, int64(1), counter.Count)
}

func TestCheck_SeedsFromStoreOnCacheMiss(t *testing.T) {
	// Another process already consumed part of the window.
	store := memory.NewCounterStore()
	l, clock := newLimiter(t, store)
	policy := models.RateLimitPolicy{Window: time.Minute, MaxRequests: 3}

	require.NoError(t, store.Upsert(context.Background(), &models.WindowCounter{
		Key:       "k",
		Count:     2,
		WindowEnd: clock.Now().Add(30 * time.Second),
	}))

	res := l.Check(context.Background(), "k", policy)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	assert.False(t, l.Check(context.Background(), "k", policy).Allowed)
}

func TestCheck_FailsOpenOnStoreOutage(t *testing.T) {
	store := memory.NewCounterStore()
	store.FailReads = true
	store.FailWrites = true
	l, _ := newLimiter(t, store)
	policy := models.RateLimitPolicy{Window: time.Second, MaxRequests: 2}

	// Reads fail open to zero usage; write failures are swallowed. The
	// local cache still enforces the budget.
	assert.True(t, l.Check(context.Background(), "k", policy).Allowed)
	assert.True(t, l.Check(context.Background(), "k", policy).Allowed)
	assert.False(t, l.Check(context.Background(), "k", policy).Allowed)
}

type storeErrorRecorder struct {
	mu  sync.Mutex
	ops map[string]int
}

func (r *storeErrorRecorder) RecordStoreError(operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]int)
	}
	r.ops[operation]++
}

func TestCheck_CountsStoreFaults(t *testing.T) {
	store := memory.NewCounterStore()
	store.FailReads = true
	store.FailWrites = true
	recorder := &storeErrorRecorder{}
	l, _ := newLimiter(t, store,
		ratelimit.WithStoreMetrics(recorder),
		ratelimit.WithSweepProbability(1),
	)
	policy := models.RateLimitPolicy{Window: time.Second, MaxRequests: 2}

	assert.True(t, l.Check(context.Background(), "k", policy).Allowed)

	// One failed cache-miss read, one failed mirror write, one failed
	// sweep.
	assert.Equal(t, 1, recorder.ops["find"])
	assert.Equal(t, 1, recorder.ops["upsert"])
	assert.Equal(t, 1, recorder.ops["delete_expired"])

	// The second call hits the warm cache, so only the write and sweep
	// paths fire again.
	assert.True(t, l.Check(context.Background(), "k", policy).Allowed)
	assert.Equal(t, 1, recorder.ops["find"])
	assert.Equal(t, 2, recorder.ops["upsert"])
}

func TestCheck_SweepRemovesExpiredCounters(t *testing.T) {
	store := memory.NewCounterStore()
	l, clock := newLimiter(t, store, ratelimit.WithSweepProbability(1))
	policy := models.RateLimitPolicy{Window: time.Second, MaxRequests: 10}

	require.NoError(t, store.Upsert(context.Background(), &models.WindowCounter{
		Key:       "stale",
		Count:     5,
		WindowEnd: clock.Now().Add(-time.Hour),
	}))

	require.True(t, l.Check(context.Background(), "k", policy).Allowed)

	// The stale row is gone; the freshly mirrored one remains.
	counter, err := store.Find(context.Background(), "stale", clock.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, counter)
	assert.Equal(t, 1, store.Len())
}

func TestCheck_ConcurrentSameKeyNeverOveradmits(t *testing.T) {
	l, _ := newLimiter(t, memory.NewCounterStore())
	policy := models.RateLimitPolicy{Window: time.Minute, MaxRequests: 50}

	const workers = 100
	var admitted int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if l.Check(context.Background(), "k", policy).Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), admitted)
}

func TestReset_ClearsBothTiers(t *testing.T) {
	store := memory.NewCounterStore()
	l, _ := newLimiter(t, store)
	policy := models.RateLimitPolicy{Window: time.Minute, MaxRequests: 1}

	require.True(t, l.Check(context.Background(), "k", policy).Allowed)
	require.False(t, l.Check(context.Background(), "k", policy).Allowed)

	require.NoError(t, l.Reset(context.Background(), "k"))

	assert.True(t, l.Check(context.Background(), "k", policy).Allowed)
}

func TestRetryAfter_RoundsUpToWholeSeconds(t *testing.T) {
	l, _ := newLimiter(t, memory.NewCounterStore())
	policy := models.RateLimitPolicy{Window: 1500 * time.Millisecond, MaxRequests: 1}

	require.True(t, l.Check(context.Background(), "k", policy).Allowed)
	res := l.Check(context.Background(), "k", policy)
	require.False(t, res.Allowed)
	assert.Equal(t, 2, res.RetryAfterSeconds)
}
