// Package memory provides in-process implementations of the persistence
// contracts. Used for the memory storage driver and as hermetic test doubles.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/repository"
	"github.com/gateward/gateward/pkg/errors"
)

// APIKeyRepo is a mutex-guarded, map-backed APIKeyRepository.
type APIKeyRepo struct {
	mu       sync.RWMutex
	byID     map[string]*models.APIKey
	bySecret map[string]string // secret -> id
}

var _ repository.APIKeyRepository = (*APIKeyRepo)(nil)

// NewAPIKeyRepo creates an empty repository.
func NewAPIKeyRepo() *APIKeyRepo {
	return &APIKeyRepo{
		byID:     make(map[string]*models.APIKey),
		bySecret: make(map[string]string),
	}
}

func (r *APIKeyRepo) Save(ctx context.Context, key *models.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[key.ID]; exists {
		return errors.ErrPersistence("duplicate key id")
	}
	if _, exists := r.bySecret[key.Secret]; exists {
		return errors.ErrPersistence("duplicate key secret")
	}

	clone := *key
	r.byID[key.ID] = &clone
	r.bySecret[key.Secret] = key.ID
	return nil
}

func (r *APIKeyRepo) FindBySecret(ctx context.Context, secret string) (*models.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySecret[secret]
	if !ok {
		return nil, errors.ErrNotFound("key not found")
	}
	clone := *r.byID[id]
	return &clone, nil
}

func (r *APIKeyRepo) FindByID(ctx context.Context, id string) (*models.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.byID[id]
	if !ok {
		return nil, errors.ErrNotFound("key not found")
	}
	clone := *key
	return &clone, nil
}

func (r *APIKeyRepo) Disable(ctx context.Context, id string, revokedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byID[id]
	if !ok {
		return errors.ErrNotFound("key not found")
	}
	key.Revoke(revokedAt)
	return nil
}

func (r *APIKeyRepo) RecordUsage(ctx context.Context, id string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byID[id]
	if !ok {
		return errors.ErrNotFound("key not found")
	}
	key.UsageCount++
	t := usedAt
	key.LastUsedAt = &t
	return nil
}

func (r *APIKeyRepo) ListByOwner(ctx context.Context, userID, organizationID string) ([]*models.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]*models.APIKey, 0)
	for _, key := range r.byID {
		if userID != "" && key.UserID != userID {
			continue
		}
		if organizationID != "" && key.OrganizationID != organizationID {
			continue
		}
		clone := *key
		keys = append(keys, &clone)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

// Put force-writes a record bypassing the uniqueness checks. Tests use this to
// simulate direct store mutations behind the manager's back.
func (r *APIKeyRepo) Put(key *models.APIKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *key
	r.byID[key.ID] = &clone
	r.bySecret[key.Secret] = key.ID
}
