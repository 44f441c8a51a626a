// Package models defines the domain models for the gateward admission control
// service. This file contains the APIKey credential model and its lifecycle
// logic.
package models

import (
	"time"
)

// RateLimitPolicy is the immutable per-window request budget attached to a key
// at issuance time, or supplied by the caller for anonymous traffic.
type RateLimitPolicy struct {
	// Window is the fixed window duration.
	Window time.Duration `json:"window_ms" db:"window_ms"`

	// MaxRequests is the number of requests admitted per window.
	MaxRequests int `json:"max_requests" db:"max_requests"`
}

// APIKey represents a long-lived bearer credential. The secret is opaque and
// server-generated; it is returned to the caller exactly once, at issuance.
type APIKey struct {
	// ID is the unique identifier of the key record.
	ID string `json:"id" db:"id"`

	// Secret is the opaque bearer token presented on requests.
	Secret string `json:"key" db:"secret"`

	// Name is a human-readable label chosen at issuance.
	Name string `json:"name" db:"name"`

	// Description optionally documents the key's purpose.
	Description string `json:"description,omitempty" db:"description"`

	// UserID optionally ties the key to an owning user.
	UserID string `json:"user_id,omitempty" db:"user_id"`

	// OrganizationID optionally ties the key to an owning organization.
	OrganizationID string `json:"organization_id,omitempty" db:"organization_id"`

	// Enabled is false once the key has been revoked. Revocation is
	// terminal; records are never hard-deleted, preserving the audit trail.
	Enabled bool `json:"enabled" db:"enabled"`

	// RevokedAt is set when the key is revoked and never cleared. It makes
	// revocation terminal even if enabled is later flipped back by a
	// direct store mutation bypassing the manager.
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`

	// RateLimit is the policy embedded at issuance time. Authenticated
	// requests are limited by this policy instead of the public default.
	RateLimit RateLimitPolicy `json:"rate_limit" db:"rate_limit"`

	// AllowedEndpoints is an ordered set of glob-style patterns. Empty
	// means every endpoint is allowed.
	AllowedEndpoints []string `json:"allowed_endpoints" db:"allowed_endpoints"`

	// Permissions is a set of named permissions. Empty means every
	// permission is granted; the literal "*" grants everything.
	Permissions []string `json:"permissions" db:"permissions"`

	// UsageCount is incremented on each successful validation.
	UsageCount int64 `json:"usage_count" db:"usage_count"`

	// LastUsedAt is the time of the most recent successful validation.
	LastUsedAt *time.Time `json:"last_used,omitempty" db:"last_used_at"`

	// CreatedAt is the issuance time.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// ExpiresAt optionally bounds the key's lifetime. Expiry is checked
	// lazily at validation time; expired keys are not proactively deleted.
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// IsExpired reports whether the key has passed its expiry time. Keys without
// an expiry never expire.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// IsUsable reports whether the key may authenticate a request: it must be
// enabled, never revoked, and not expired. Expiry takes precedence over the
// enabled flag.
func (k *APIKey) IsUsable(now time.Time) bool {
	return k.Enabled && k.RevokedAt == nil && !k.IsExpired(now)
}

// IsUnrestricted reports whether the key carries no endpoint or permission
// restrictions. Such a key passes every authorization check; issuing one is an
// explicit, auditable choice, never a default.
func (k *APIKey) IsUnrestricted() bool {
	return len(k.AllowedEndpoints) == 0 && len(k.Permissions) == 0
}

// Revoke disables the key. Idempotent: revoking a revoked key keeps the
// original revocation time.
func (k *APIKey) Revoke(now time.Time) {
	k.Enabled = false
	if k.RevokedAt == nil {
		t := now
		k.RevokedAt = &t
	}
}

// KeySpec carries the caller-supplied fields for issuing a new key. ID, secret
// and timestamps are always server-generated.
type KeySpec struct {
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	UserID           string           `json:"user_id,omitempty"`
	OrganizationID   string           `json:"organization_id,omitempty"`
	RateLimit        *RateLimitPolicy `json:"rate_limit,omitempty"`
	AllowedEndpoints []string         `json:"allowed_endpoints,omitempty"`
	Permissions      []string         `json:"permissions,omitempty"`
	ExpiresAt        *time.Time       `json:"expires_at,omitempty"`
}
