package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/repository"
	gwerrors "github.com/gateward/gateward/pkg/errors"
	"github.com/gateward/gateward/pkg/logger"
)

const (
	counterKeyPrefix = "gateward:counter:"

	// Keys outlive their window slightly so a late cross-process read can
	// still observe the closing counter.
	counterTTLGrace = time.Minute
)

// counterRecord is the JSON shape persisted per window counter.
type counterRecord struct {
	Count     int64 `json:"count"`
	WindowEnd int64 `json:"window_end_ms"`
}

// CounterStore persists window counters in Redis. Each counter is stored as a
// small JSON value whose TTL tracks the window end, so Redis reclaims stale
// counters on its own and the sweep only has to catch TTL drift.
type CounterStore struct {
	client redis.UniversalClient
	log    logger.Logger
}

var _ repository.CounterStore = (*CounterStore)(nil)

// NewCounterStore creates a Redis-backed counter store.
func NewCounterStore(client redis.UniversalClient, log logger.Logger) *CounterStore {
	return &CounterStore{client: client, log: log.WithComponent("redis_counter_store")}
}

// Find returns the counter for key if its window is still open relative to
// windowStart, or nil when absent or stale.
func (s *CounterStore) Find(ctx context.Context, key string, windowStart time.Time) (*models.WindowCounter, error) {
	val, err := s.client.Get(ctx, counterKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, gwerrors.ErrStorageUnavailable("redis read failed").WithCause(err)
	}

	var rec counterRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		// A corrupt record is treated as absent; the next upsert replaces it.
		s.log.Warn(ctx, "discarding malformed counter record",
			logger.String("key", key),
			logger.Err(err),
		)
		return nil, nil
	}

	windowEnd := time.UnixMilli(rec.WindowEnd)
	if !windowEnd.After(windowStart) {
		return nil, nil
	}
	return &models.WindowCounter{Key: key, Count: rec.Count, WindowEnd: windowEnd}, nil
}

// Upsert writes the counter, last writer wins. The TTL is pinned to the
// window end plus a grace period; an already-expired counter is removed
// instead of written.
func (s *CounterStore) Upsert(ctx context.Context, counter *models.WindowCounter) error {
	ttl := time.Until(counter.WindowEnd) + counterTTLGrace
	if ttl <= 0 {
		return s.Delete(ctx, counter.Key)
	}

	payload, err := json.Marshal(counterRecord{
		Count:     counter.Count,
		WindowEnd: counter.WindowEnd.UnixMilli(),
	})
	if err != nil {
		return gwerrors.ErrPersistence("counter encode failed").WithCause(err)
	}

	if err := s.client.Set(ctx, counterKeyPrefix+counter.Key, payload, ttl).Err(); err != nil {
		return gwerrors.ErrStorageUnavailable("redis write failed").WithCause(err)
	}
	return nil
}

// Delete removes the counter for key.
func (s *CounterStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, counterKeyPrefix+key).Err(); err != nil {
		return gwerrors.ErrStorageUnavailable("redis delete failed").WithCause(err)
	}
	return nil
}

// DeleteExpired scans the counter keyspace and removes records whose window
// closed before the cutoff. TTLs already reclaim most of these, so this is a
// drift backstop rather than the primary cleanup path.
func (s *CounterStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	iter := s.client.Scan(ctx, 0, counterKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return removed, gwerrors.ErrStorageUnavailable("redis read failed").WithCause(err)
		}

		var rec counterRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			continue
		}
		if time.UnixMilli(rec.WindowEnd).After(before) {
			continue
		}

		if err := s.client.Del(ctx, key).Err(); err != nil {
			return removed, gwerrors.ErrStorageUnavailable("redis delete failed").WithCause(err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, gwerrors.ErrStorageUnavailable("redis scan failed").WithCause(err)
	}
	return removed, nil
}

// Ping reports store connectivity.
func (s *CounterStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return gwerrors.ErrStorageUnavailable("redis ping failed").WithCause(err)
	}
	return nil
}
