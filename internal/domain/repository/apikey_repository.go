// Package repository defines the persistence contracts of the domain layer.
// Implementations live under internal/infrastructure/persistence.
package repository

import (
	"context"
	"time"

	"github.com/gateward/gateward/internal/domain/models"
)

// APIKeyRepository is the persistence contract for API key records.
//
// Implementations: internal/infrastructure/persistence/postgres,
// internal/infrastructure/persistence/memory.
type APIKeyRepository interface {
	// Save persists a fully constructed key record. It fails on duplicate
	// ID or secret; issuance is all-or-nothing.
	Save(ctx context.Context, key *models.APIKey) error

	// FindBySecret looks a key up by its bearer secret. Returns
	// errors.ErrNotFound when no record matches. Validation re-reads the
	// store on every call; key state is never cached here.
	FindBySecret(ctx context.Context, secret string) (*models.APIKey, error)

	// FindByID looks a key up by its ID.
	FindByID(ctx context.Context, id string) (*models.APIKey, error)

	// Disable sets enabled=false and stamps revoked_at on the record.
	// Idempotent: disabling an already-disabled key succeeds and keeps the
	// original revocation time.
	Disable(ctx context.Context, id string, revokedAt time.Time) error

	// RecordUsage bumps usage_count and sets last_used_at. Best-effort
	// bookkeeping; callers log failures and move on.
	RecordUsage(ctx context.Context, id string, usedAt time.Time) error

	// ListByOwner returns keys filtered by user and/or organization,
	// newest first. Empty filters return all keys (administrative use).
	ListByOwner(ctx context.Context, userID, organizationID string) ([]*models.APIKey, error)
}
