package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/repository"
)

// CounterStore is a mutex-guarded, map-backed CounterStore. It backs the
// memory storage driver and rate limiter tests.
type CounterStore struct {
	mu       sync.Mutex
	counters map[string]models.WindowCounter

	// FailReads and FailWrites make the store report unavailability.
	// Tests use these to exercise the fail-open policy.
	FailReads  bool
	FailWrites bool
}

var _ repository.CounterStore = (*CounterStore)(nil)

// NewCounterStore creates an empty counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{counters: make(map[string]models.WindowCounter)}
}

func (s *CounterStore) Find(ctx context.Context, key string, windowStart time.Time) (*models.WindowCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailReads {
		return nil, errUnavailable()
	}

	counter, ok := s.counters[key]
	if !ok || !counter.WindowEnd.After(windowStart) {
		return nil, nil
	}
	clone := counter
	return &clone, nil
}

func (s *CounterStore) Upsert(ctx context.Context, counter *models.WindowCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return errUnavailable()
	}

	s.counters[counter.Key] = *counter
	return nil
}

func (s *CounterStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return errUnavailable()
	}

	delete(s.counters, key)
	return nil
}

func (s *CounterStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return 0, errUnavailable()
	}

	var removed int64
	for key, counter := range s.counters {
		if counter.WindowEnd.Before(before) {
			delete(s.counters, key)
			removed++
		}
	}
	return removed, nil
}

func (s *CounterStore) Ping(ctx context.Context) error {
	if s.FailReads {
		return errUnavailable()
	}
	return nil
}

// Len reports the number of stored counters. Test helper.
func (s *CounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}
