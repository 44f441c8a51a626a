package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/repository"
	gwerrors "github.com/gateward/gateward/pkg/errors"
	"github.com/gateward/gateward/pkg/logger"
)

const pgUniqueViolation = "23505"

// APIKeyRepositoryImpl implements repository.APIKeyRepository on PostgreSQL.
type APIKeyRepositoryImpl struct {
	db  *DBConnection
	log logger.Logger
}

var _ repository.APIKeyRepository = (*APIKeyRepositoryImpl)(nil)

// NewAPIKeyRepository creates a PostgreSQL-backed key repository.
func NewAPIKeyRepository(db *DBConnection, log logger.Logger) *APIKeyRepositoryImpl {
	return &APIKeyRepositoryImpl{db: db, log: log.WithComponent("apikey_repository")}
}

const apiKeyColumns = `
	id, secret, name, description, user_id, organization_id,
	enabled, revoked_at, window_ms, max_requests,
	allowed_endpoints, permissions, usage_count, last_used_at,
	created_at, expires_at`

// Save inserts a new key record. Duplicate ID or secret fails the whole
// insert; issuance retries with fresh values rather than overwriting.
func (r *APIKeyRepositoryImpl) Save(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (` + apiKeyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.Pool().Exec(ctx, query,
		key.ID,
		key.Secret,
		key.Name,
		key.Description,
		key.UserID,
		key.OrganizationID,
		key.Enabled,
		key.RevokedAt,
		key.RateLimit.Window.Milliseconds(),
		key.RateLimit.MaxRequests,
		key.AllowedEndpoints,
		key.Permissions,
		key.UsageCount,
		key.LastUsedAt,
		key.CreatedAt,
		key.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return gwerrors.ErrPersistence("duplicate key id or secret").WithCause(err)
		}
		r.log.Error(ctx, "api key insert failed", err,
			logger.String("key_id", key.ID),
		)
		return gwerrors.ErrStorageUnavailable("api key insert failed").WithCause(err)
	}
	return nil
}

// FindBySecret looks up a key by its bearer secret.
func (r *APIKeyRepositoryImpl) FindBySecret(ctx context.Context, secret string) (*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE secret = $1`
	return r.queryOne(ctx, query, secret)
}

// FindByID looks up a key by its ID.
func (r *APIKeyRepositoryImpl) FindByID(ctx context.Context, id string) (*models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *APIKeyRepositoryImpl) queryOne(ctx context.Context, query string, arg any) (*models.APIKey, error) {
	row := r.db.Pool().QueryRow(ctx, query, arg)

	key, err := scanAPIKey(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, gwerrors.ErrNotFound("api key not found")
	}
	if err != nil {
		return nil, gwerrors.ErrStorageUnavailable("api key lookup failed").WithCause(err)
	}
	return key, nil
}

// Disable revokes the key in place. The COALESCE keeps the first revocation
// time on repeat calls.
func (r *APIKeyRepositoryImpl) Disable(ctx context.Context, id string, revokedAt time.Time) error {
	query := `
		UPDATE api_keys
		SET enabled = FALSE, revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1`

	tag, err := r.db.Pool().Exec(ctx, query, id, revokedAt)
	if err != nil {
		return gwerrors.ErrStorageUnavailable("api key disable failed").WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		return gwerrors.ErrNotFound("api key not found")
	}
	return nil
}

// RecordUsage bumps the usage counter and stamps last_used_at.
func (r *APIKeyRepositoryImpl) RecordUsage(ctx context.Context, id string, usedAt time.Time) error {
	query := `
		UPDATE api_keys
		SET usage_count = usage_count + 1, last_used_at = $2
		WHERE id = $1`

	tag, err := r.db.Pool().Exec(ctx, query, id, usedAt)
	if err != nil {
		return gwerrors.ErrStorageUnavailable("usage update failed").WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		return gwerrors.ErrNotFound("api key not found")
	}
	return nil
}

// ListByOwner returns keys for the given owner filters, newest first. Empty
// filters match everything.
func (r *APIKeyRepositoryImpl) ListByOwner(ctx context.Context, userID, organizationID string) ([]*models.APIKey, error) {
	query := `
		SELECT ` + apiKeyColumns + `
		FROM api_keys
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR organization_id = $2)
		ORDER BY created_at DESC`

	rows, err := r.db.Pool().Query(ctx, query, userID, organizationID)
	if err != nil {
		return nil, gwerrors.ErrStorageUnavailable("api key list failed").WithCause(err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, gwerrors.ErrStorageUnavailable("api key scan failed").WithCause(err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, gwerrors.ErrStorageUnavailable("api key list failed").WithCause(err)
	}
	return keys, nil
}

func scanAPIKey(row pgx.Row) (*models.APIKey, error) {
	var key models.APIKey
	var windowMs int64

	err := row.Scan(
		&key.ID,
		&key.Secret,
		&key.Name,
		&key.Description,
		&key.UserID,
		&key.OrganizationID,
		&key.Enabled,
		&key.RevokedAt,
		&windowMs,
		&key.RateLimit.MaxRequests,
		&key.AllowedEndpoints,
		&key.Permissions,
		&key.UsageCount,
		&key.LastUsedAt,
		&key.CreatedAt,
		&key.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	key.RateLimit.Window = time.Duration(windowMs) * time.Millisecond
	return &key, nil
}
