package ratelimit

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gateward/gateward/internal/domain/models"
)

// cacheEvictionGrace keeps evicted entries around slightly past their window
// so a counter is never dropped while still authoritative.
const cacheEvictionGrace = time.Minute

// janitorInterval is how often the backing cache purges evicted entries.
const janitorInterval = 5 * time.Minute

// WindowCache is the process-local, authoritative side of the rate limiter: a
// mutex-guarded map from rate-limit key to its current window counter.
//
// The mutex makes check-and-increment atomic per process, so concurrent
// requests on the same key can neither lose increments nor over-admit.
// Logical expiry is decided against the caller's clock via WindowEnd; the
// backing go-cache TTL only bounds memory by evicting stale entries on wall
// time.
type WindowCache struct {
	mu      sync.Mutex
	entries *gocache.Cache
}

// NewWindowCache creates an empty cache. It lives for the process lifetime;
// entries leave it only through window expiry.
func NewWindowCache() *WindowCache {
	return &WindowCache{
		entries: gocache.New(gocache.NoExpiration, janitorInterval),
	}
}

// Peek returns the unexpired counter for key, if the cache holds one.
func (c *WindowCache) Peek(key string, now time.Time) (models.WindowCounter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries.Get(key); ok {
		counter := v.(models.WindowCounter)
		if !counter.Expired(now) {
			return counter, true
		}
	}
	return models.WindowCounter{}, false
}

// Admit atomically runs the in-window decision for key: the cached counter is
// authoritative when present and unexpired; otherwise fallback (a counter read
// from the durable store, possibly nil) seeds the window. If the in-window
// count has reached the policy budget the request is denied and nothing is
// written; otherwise the incremented counter is stored and returned.
func (c *WindowCache) Admit(key string, fallback *models.WindowCounter, policy models.RateLimitPolicy, now time.Time) (models.WindowCounter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var count int64
	var windowEnd time.Time

	if v, ok := c.entries.Get(key); ok {
		if cached := v.(models.WindowCounter); !cached.Expired(now) {
			count, windowEnd = cached.Count, cached.WindowEnd
		}
	}
	if windowEnd.IsZero() && fallback != nil && !fallback.Expired(now) {
		count, windowEnd = fallback.Count, fallback.WindowEnd
	}
	if windowEnd.IsZero() {
		windowEnd = now.Add(policy.Window)
	}

	if count >= int64(policy.MaxRequests) {
		return models.WindowCounter{Key: key, Count: count, WindowEnd: windowEnd}, false
	}

	counter := models.WindowCounter{Key: key, Count: count + 1, WindowEnd: windowEnd}
	c.entries.Set(key, counter, windowEnd.Sub(now)+cacheEvictionGrace)
	return counter, true
}

// Delete removes the counter for key.
func (c *WindowCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Delete(key)
}
