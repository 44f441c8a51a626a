// Package service contains the application services composing the domain
// layer into request-facing operations.
package service

import (
	"context"
	"time"

	"github.com/gateward/gateward/internal/domain/models"
	domainservice "github.com/gateward/gateward/internal/domain/service"
	gwerrors "github.com/gateward/gateward/pkg/errors"
	"github.com/gateward/gateward/pkg/logger"
)

// Admission outcomes, used as metric labels and decision tags.
const (
	OutcomeAdmitted         = "admitted"
	OutcomeRateLimited      = "rate_limited"
	OutcomeUnauthenticated  = "unauthenticated"
	OutcomePermissionDenied = "permission_denied"
)

// Tiers holds the named rate limit policies from configuration.
type Tiers struct {
	Public        models.RateLimitPolicy
	Authenticated models.RateLimitPolicy
	Premium       models.RateLimitPolicy
}

// AdmissionRequest carries everything the pipeline needs about one request.
type AdmissionRequest struct {
	// RateKey is the resolved rate-limit key (credential- or IP-derived).
	RateKey string

	// Secret is the credential header value; empty for anonymous traffic.
	Secret string

	// Endpoint is the request path checked against key endpoint patterns.
	Endpoint string

	// Permission is the named permission the request exercises.
	Permission string

	// ClientIP is kept for audit context.
	ClientIP string
}

// AdmissionDecision is the pipeline verdict. Deny is always one of the three
// denial outcomes with Err set; storage faults never produce a denial on
// their own.
type AdmissionDecision struct {
	Allowed   bool
	Outcome   string
	RateLimit *models.RateLimitResult

	// Key is the validated credential, nil for anonymous or rejected
	// requests.
	Key *models.APIKey

	// Err maps the denial onto the error taxonomy; nil when allowed.
	Err gwerrors.AppError
}

// AdmissionMetrics is the slice of the metrics surface the pipeline records
// to. Satisfied by monitoring.Metrics.
type AdmissionMetrics interface {
	RecordAdmission(outcome string, duration time.Duration)
	RecordRateLimitDenial(scope string)
	RecordKeyValidation(result string)
}

// AdmissionService runs the admission pipeline: rate limit, then
// authentication, then authorization. The rate limit verdict takes precedence
// so denial responses never reveal credential validity.
type AdmissionService interface {
	Admit(ctx context.Context, req AdmissionRequest) *AdmissionDecision
}

type admissionService struct {
	keys    domainservice.APIKeyService
	limiter domainservice.RateLimitService
	authz   *domainservice.PermissionEvaluator
	metrics AdmissionMetrics
	log     logger.Logger
	tiers   Tiers
}

// NewAdmissionService wires the pipeline. metrics may be nil in tests.
func NewAdmissionService(
	keys domainservice.APIKeyService,
	limiter domainservice.RateLimitService,
	authz *domainservice.PermissionEvaluator,
	metrics AdmissionMetrics,
	log logger.Logger,
	tiers Tiers,
) AdmissionService {
	return &admissionService{
		keys:    keys,
		limiter: limiter,
		authz:   authz,
		metrics: metrics,
		log:     log.WithComponent("admission"),
		tiers:   tiers,
	}
}

func (s *admissionService) Admit(ctx context.Context, req AdmissionRequest) *AdmissionDecision {
	start := time.Now()

	// Authentication runs first because a valid key carries its own rate
	// limit policy, but the rate limit verdict outranks the
	// authentication one: an over-budget caller always sees 429, never a
	// hint about whether its credential was valid.
	var key *models.APIKey
	if req.Secret != "" {
		validated, err := s.keys.Validate(ctx, req.Secret)
		if err == nil {
			key = validated
			s.recordValidation("valid")
		} else {
			s.recordValidation("invalid")
		}
	}

	policy, scope := s.policyFor(req, key)
	result := s.limiter.Check(ctx, req.RateKey, policy)
	if !result.Allowed {
		if s.metrics != nil {
			s.metrics.RecordRateLimitDenial(scope)
		}
		s.log.Debug(ctx, "request rate limited",
			logger.String("rate_key", req.RateKey),
			logger.Int("limit", result.Limit),
		)
		return s.finish(start, &AdmissionDecision{
			Outcome:   OutcomeRateLimited,
			RateLimit: result,
			Err:       gwerrors.ErrRateLimited(result.Limit, result.RetryAfterSeconds),
		})
	}

	if req.Secret != "" && key == nil {
		return s.finish(start, &AdmissionDecision{
			Outcome:   OutcomeUnauthenticated,
			RateLimit: result,
			Err:       gwerrors.ErrUnauthenticated(),
		})
	}

	if key != nil && !s.authz.Authorize(key, req.Endpoint, req.Permission) {
		s.log.Info(ctx, "request denied by key scope",
			logger.String("key_id", key.ID),
			logger.String("endpoint", req.Endpoint),
			logger.String("permission", req.Permission),
		)
		return s.finish(start, &AdmissionDecision{
			Outcome:   OutcomePermissionDenied,
			RateLimit: result,
			Key:       key,
			Err:       gwerrors.ErrPermissionDenied(),
		})
	}

	return s.finish(start, &AdmissionDecision{
		Allowed:   true,
		Outcome:   OutcomeAdmitted,
		RateLimit: result,
		Key:       key,
	})
}

// policyFor picks the policy and metric scope for the request: the key's
// embedded policy for validated credentials, the public tier for everything
// else. An invalid credential is metered like anonymous traffic so probing
// burns the strictest budget.
func (s *admissionService) policyFor(req AdmissionRequest, key *models.APIKey) (models.RateLimitPolicy, string) {
	if key != nil {
		policy := key.RateLimit
		if policy.Window <= 0 || policy.MaxRequests <= 0 {
			policy = s.tiers.Authenticated
		}
		return policy, "key"
	}
	if req.Secret != "" {
		return s.tiers.Public, "key"
	}
	return s.tiers.Public, "ip"
}

func (s *admissionService) recordValidation(result string) {
	if s.metrics != nil {
		s.metrics.RecordKeyValidation(result)
	}
}

func (s *admissionService) finish(start time.Time, decision *AdmissionDecision) *AdmissionDecision {
	if s.metrics != nil {
		s.metrics.RecordAdmission(decision.Outcome, time.Since(start))
	}
	return decision
}
