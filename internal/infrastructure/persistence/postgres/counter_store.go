package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/repository"
	gwerrors "github.com/gateward/gateward/pkg/errors"
	"github.com/gateward/gateward/pkg/logger"
)

// CounterStore persists window counters in PostgreSQL. One row per key,
// last-writer-wins via upsert; the limiter's probabilistic sweep prunes rows
// whose window has closed.
type CounterStore struct {
	db  *DBConnection
	log logger.Logger
}

var _ repository.CounterStore = (*CounterStore)(nil)

// NewCounterStore creates a PostgreSQL-backed counter store.
func NewCounterStore(db *DBConnection, log logger.Logger) *CounterStore {
	return &CounterStore{db: db, log: log.WithComponent("pg_counter_store")}
}

// Find returns the counter for key if its window is still open relative to
// windowStart, or nil when absent or stale.
func (s *CounterStore) Find(ctx context.Context, key string, windowStart time.Time) (*models.WindowCounter, error) {
	query := `
		SELECT count, window_end
		FROM window_counters
		WHERE key = $1 AND window_end > $2`

	counter := models.WindowCounter{Key: key}
	err := s.db.Pool().QueryRow(ctx, query, key, windowStart).Scan(&counter.Count, &counter.WindowEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, gwerrors.ErrStorageUnavailable("counter read failed").WithCause(err)
	}
	return &counter, nil
}

// Upsert writes the counter, last writer wins.
func (s *CounterStore) Upsert(ctx context.Context, counter *models.WindowCounter) error {
	query := `
		INSERT INTO window_counters (key, count, window_end)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			count = EXCLUDED.count,
			window_end = EXCLUDED.window_end`

	if _, err := s.db.Pool().Exec(ctx, query, counter.Key, counter.Count, counter.WindowEnd); err != nil {
		return gwerrors.ErrStorageUnavailable("counter upsert failed").WithCause(err)
	}
	return nil
}

// Delete removes the counter for key.
func (s *CounterStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Pool().Exec(ctx, `DELETE FROM window_counters WHERE key = $1`, key); err != nil {
		return gwerrors.ErrStorageUnavailable("counter delete failed").WithCause(err)
	}
	return nil
}

// DeleteExpired removes every counter whose window closed before the cutoff.
func (s *CounterStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Pool().Exec(ctx, `DELETE FROM window_counters WHERE window_end < $1`, before)
	if err != nil {
		return 0, gwerrors.ErrStorageUnavailable("counter sweep failed").WithCause(err)
	}
	return tag.RowsAffected(), nil
}

// Ping reports store connectivity.
func (s *CounterStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return gwerrors.ErrStorageUnavailable("postgres unreachable").WithCause(err)
	}
	return nil
}
