package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/repository"
	"github.com/gateward/gateward/pkg/constants"
	"github.com/gateward/gateward/pkg/errors"
	"github.com/gateward/gateward/pkg/logger"
	"github.com/gateward/gateward/pkg/utils"
)

// APIKeyService manages the API key lifecycle: issuance, validation,
// revocation, and owner listing.
//
// The state machine is deliberately small: Active -> Revoked (terminal) or
// Active -> Expired (lazy, checked at validation). There is no renew
// transition; callers issue a new key instead.
type APIKeyService interface {
	// Issue creates and persists a new key. The returned record carries
	// the plaintext secret; this is the only time it is exposed. A store
	// write failure surfaces as a persistence error and no key exists.
	Issue(ctx context.Context, spec models.KeySpec) (*models.APIKey, error)

	// Validate resolves a secret to a usable key. Not-found, disabled and
	// expired all collapse to the same unauthenticated error so callers
	// cannot probe for valid-but-disabled keys. Successful validation
	// records usage asynchronously, best-effort.
	Validate(ctx context.Context, secret string) (*models.APIKey, error)

	// Revoke disables a key. Idempotent; revocation is terminal.
	Revoke(ctx context.Context, id string) error

	// ListForOwner returns keys filtered by user and/or organization,
	// newest first.
	ListForOwner(ctx context.Context, userID, organizationID string) ([]*models.APIKey, error)
}

type apiKeyService struct {
	repo          repository.APIKeyRepository
	audit         AuditService
	log           logger.Logger
	defaultPolicy models.RateLimitPolicy
	usageTimeout  time.Duration
	now           func() time.Time
}

// APIKeyServiceOption customizes the service.
type APIKeyServiceOption func(*apiKeyService)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) APIKeyServiceOption {
	return func(s *apiKeyService) { s.now = now }
}

// WithDefaultPolicy overrides the policy embedded into keys whose spec does
// not carry one.
func WithDefaultPolicy(policy models.RateLimitPolicy) APIKeyServiceOption {
	return func(s *apiKeyService) { s.defaultPolicy = policy }
}

// NewAPIKeyService creates the key manager. The default embedded policy is
// the authenticated tier.
func NewAPIKeyService(
	repo repository.APIKeyRepository,
	audit AuditService,
	log logger.Logger,
	opts ...APIKeyServiceOption,
) APIKeyService {
	s := &apiKeyService{
		repo:  repo,
		audit: audit,
		log:   log.WithComponent("apikey_service"),
		defaultPolicy: models.RateLimitPolicy{
			Window:      constants.DefaultWindow,
			MaxRequests: constants.AuthenticatedTierMaxRequests,
		},
		usageTimeout: constants.DefaultStoreTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *apiKeyService) Issue(ctx context.Context, spec models.KeySpec) (*models.APIKey, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.ErrInvalidRequest("key name is required")
	}
	if spec.RateLimit != nil && (spec.RateLimit.Window <= 0 || spec.RateLimit.MaxRequests <= 0) {
		return nil, errors.ErrInvalidRequest("rate limit policy must have a positive window and max_requests")
	}

	now := s.now().UTC()
	secret, err := utils.GenerateSecret(now)
	if err != nil {
		return nil, errors.ErrInternal("generating secret").WithCause(err)
	}

	policy := s.defaultPolicy
	if spec.RateLimit != nil {
		policy = *spec.RateLimit
	}

	key := &models.APIKey{
		ID:               uuid.NewString(),
		Secret:           secret,
		Name:             spec.Name,
		Description:      spec.Description,
		UserID:           spec.UserID,
		OrganizationID:   spec.OrganizationID,
		Enabled:          true,
		RateLimit:        policy,
		AllowedEndpoints: spec.AllowedEndpoints,
		Permissions:      spec.Permissions,
		UsageCount:       0,
		CreatedAt:        now,
		ExpiresAt:        spec.ExpiresAt,
	}

	if key.IsUnrestricted() {
		s.log.Warn(ctx, "issuing unrestricted key",
			logger.String("key_id", key.ID),
			logger.String("name", key.Name),
		)
	}

	if err := s.repo.Save(ctx, key); err != nil {
		s.log.Error(ctx, "key issuance write failed", err, logger.String("name", spec.Name))
		return nil, errors.ErrPersistence("issuing key").WithCause(err)
	}

	s.recordAudit(ctx, models.NewAuditEvent(models.AuditKeyIssued, key.ID, key.Name).WithActor(spec.UserID))

	s.log.Info(ctx, "api key issued",
		logger.String("key_id", key.ID),
		logger.String("name", key.Name),
		logger.Int("max_requests", policy.MaxRequests),
		logger.Duration("window", policy.Window),
	)
	return key, nil
}

func (s *apiKeyService) Validate(ctx context.Context, secret string) (*models.APIKey, error) {
	if secret == "" {
		return nil, errors.ErrUnauthenticated()
	}

	key, err := s.repo.FindBySecret(ctx, secret)
	if err != nil {
		// Storage faults fail closed for authorization; the caller only
		// ever learns "invalid credential".
		if !errors.IsNotFound(err) {
			s.log.Error(ctx, "key lookup failed", err)
		}
		return nil, errors.ErrUnauthenticated()
	}

	if !key.IsUsable(s.now().UTC()) {
		s.recordAudit(ctx, models.NewAuditEvent(models.AuditValidationRejected, key.ID, "key disabled or expired"))
		return nil, errors.ErrUnauthenticated()
	}

	// Usage tracking must not block or fail the validation result.
	go s.trackUsage(key.ID)

	return key, nil
}

func (s *apiKeyService) Revoke(ctx context.Context, id string) error {
	if err := s.repo.Disable(ctx, id, s.now().UTC()); err != nil {
		if errors.IsNotFound(err) {
			return errors.ErrNotFound("key not found")
		}
		return errors.ErrPersistence("revoking key").WithCause(err)
	}

	s.recordAudit(ctx, models.NewAuditEvent(models.AuditKeyRevoked, id, ""))
	s.log.Info(ctx, "api key revoked", logger.String("key_id", id))
	return nil
}

func (s *apiKeyService) ListForOwner(ctx context.Context, userID, organizationID string) ([]*models.APIKey, error) {
	keys, err := s.repo.ListByOwner(ctx, userID, organizationID)
	if err != nil {
		return nil, errors.ErrPersistence("listing keys").WithCause(err)
	}
	return keys, nil
}

// trackUsage bumps the usage counters off the request path.
func (s *apiKeyService) trackUsage(keyID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.usageTimeout)
	defer cancel()

	if err := s.repo.RecordUsage(ctx, keyID, s.now().UTC()); err != nil {
		s.log.Warn(ctx, "usage tracking write failed",
			logger.String("key_id", keyID),
			logger.Err(err),
		)
	}
}

func (s *apiKeyService) recordAudit(ctx context.Context, event models.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.log.Warn(ctx, "audit event dropped",
			logger.String("event_type", string(event.EventType)),
			logger.Err(err),
		)
	}
}
