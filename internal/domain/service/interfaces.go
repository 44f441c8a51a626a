// Package service contains the domain services of the gateward admission
// control subsystem: API key lifecycle management, permission evaluation, and
// the rate limiting contract implemented by the infrastructure layer.
package service

import (
	"context"

	"github.com/gateward/gateward/internal/domain/models"
)

// RateLimitService decides whether a request identified by a rate-limit key is
// admitted under a policy.
//
// Implementation: internal/infrastructure/ratelimit.FixedWindowLimiter.
type RateLimitService interface {
	// Check runs the fixed-window admission algorithm for key under
	// policy. It never returns an error for store outages — those degrade
	// to fail-open and are logged; the result is always usable.
	Check(ctx context.Context, key string, policy models.RateLimitPolicy) *models.RateLimitResult

	// Reset clears the counter for a key, in the local cache and the
	// durable store. Administrative use only.
	Reset(ctx context.Context, key string) error
}

// AuditService records key lifecycle events. Delivery is best-effort: a
// returned error is logged by the caller and never propagated to the request.
//
// Implementations: internal/infrastructure/audit (Kafka, no-op).
type AuditService interface {
	// Record emits one audit event.
	Record(ctx context.Context, event models.AuditEvent) error

	// Close flushes and releases the underlying producer.
	Close() error
}
