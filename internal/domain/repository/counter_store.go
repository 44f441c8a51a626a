package repository

import (
	"context"
	"time"

	"github.com/gateward/gateward/internal/domain/models"
)

// CounterStore is the durable side of the rate limiter: a key-value store of
// window counters shared across processes. It is a best-effort secondary
// record for cross-process visibility, not the source of truth for
// single-process admission — the local window cache is authoritative there.
//
// Implementations: internal/infrastructure/persistence/postgres,
// internal/infrastructure/persistence/redis,
// internal/infrastructure/persistence/memory.
type CounterStore interface {
	// Find returns the counter for key if one exists with
	// windowEnd > windowStart, nil otherwise. An unreachable store returns
	// errors.ErrStorageUnavailable; callers treat that as zero usage.
	Find(ctx context.Context, key string, windowStart time.Time) (*models.WindowCounter, error)

	// Upsert writes the counter for its key, last-writer-wins.
	Upsert(ctx context.Context, counter *models.WindowCounter) error

	// Delete removes the counter for a single key. Administrative resets.
	Delete(ctx context.Context, key string) error

	// DeleteExpired removes every counter whose window closed before the
	// given time, returning the number removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// Ping reports whether the store is reachable. Used by readiness
	// checks only.
	Ping(ctx context.Context) error
}
