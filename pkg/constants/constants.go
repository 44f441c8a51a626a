// Package constants defines system-wide constants for the gateward admission
// control service. This package provides type-safe constant definitions used
// across all modules.
package constants

import "time"

// ================================================================================
// Credential Transport Constants
// ================================================================================

const (
	// HeaderAPIKey carries the API key secret on incoming requests.
	HeaderAPIKey = "X-API-Key"

	// HeaderForwardedFor is consulted first when deriving an IP identity.
	HeaderForwardedFor = "X-Forwarded-For"

	// HeaderRealIP is consulted second when deriving an IP identity.
	HeaderRealIP = "X-Real-IP"

	// HeaderRateLimitLimit reports the window request budget.
	HeaderRateLimitLimit = "X-RateLimit-Limit"

	// HeaderRateLimitRemaining reports the requests left in the window.
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"

	// HeaderRateLimitReset reports the window reset time (epoch seconds).
	HeaderRateLimitReset = "X-RateLimit-Reset"

	// HeaderRetryAfter is set on 429 responses (whole seconds).
	HeaderRetryAfter = "Retry-After"

	// HeaderRequestID propagates the per-request correlation ID.
	HeaderRequestID = "X-Request-ID"

	// HeaderAdminToken guards the key-management endpoints.
	HeaderAdminToken = "X-Admin-Token"
)

// UnknownClient is the sentinel identity used when no credential header and no
// client address can be determined for a request.
const UnknownClient = "unknown"

// ================================================================================
// API Key Constants
// ================================================================================

// KeyStatus represents the lifecycle status of an API key.
type KeyStatus string

const (
	// KeyStatusActive indicates the key is enabled and not expired.
	KeyStatusActive KeyStatus = "active"

	// KeyStatusRevoked indicates the key has been explicitly disabled.
	KeyStatusRevoked KeyStatus = "revoked"

	// KeyStatusExpired indicates the key has passed its expiry time.
	KeyStatusExpired KeyStatus = "expired"
)

const (
	// SecretPrefix identifies secrets issued by this service.
	SecretPrefix = "gw"

	// SecretRandomBytes is the number of random bytes in a generated secret.
	// 16 bytes gives 128 bits of entropy.
	SecretRandomBytes = 16
)

// WildcardPermission grants every permission unconditionally when present in a
// key's permission set.
const WildcardPermission = "*"

// ================================================================================
// Rate Limit Tier Constants
// ================================================================================

// RateLimitTier names a built-in rate limit policy.
type RateLimitTier string

const (
	// TierPublic applies to unauthenticated, IP-identified traffic.
	TierPublic RateLimitTier = "public"

	// TierAuthenticated applies to requests carrying a valid API key.
	TierAuthenticated RateLimitTier = "authenticated"

	// TierPremium applies to keys issued with the premium policy.
	TierPremium RateLimitTier = "premium"
)

const (
	// DefaultWindow is the shared window duration of the built-in tiers.
	DefaultWindow = 15 * time.Minute

	// PublicTierMaxRequests is the per-window budget for anonymous callers.
	PublicTierMaxRequests = 100

	// AuthenticatedTierMaxRequests is the per-window budget for keyed callers.
	AuthenticatedTierMaxRequests = 1000

	// PremiumTierMaxRequests is the per-window budget for premium keys.
	PremiumTierMaxRequests = 5000
)

// DefaultSweepProbability is the per-call chance that a rate limit check also
// sweeps expired counters out of the durable store.
const DefaultSweepProbability = 0.01

// DefaultStoreTimeout bounds every durable counter store round trip so a slow
// store degrades to fail-open instead of stalling admission.
const DefaultStoreTimeout = 300 * time.Millisecond

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type used for request-scoped context values.
type ContextKey string

const (
	// ContextKeyRequestID holds the correlation ID for the request.
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyAPIKeyID holds the validated key's ID, when present.
	ContextKeyAPIKeyID ContextKey = "api_key_id"
)

// ================================================================================
// Log Level Constants
// ================================================================================

// LogLevel represents logging severity.
type LogLevel int

const (
	// LogLevelDebug enables verbose diagnostic output.
	LogLevelDebug LogLevel = iota

	// LogLevelInfo is the default operational level.
	LogLevelInfo

	// LogLevelWarn reports recoverable anomalies.
	LogLevelWarn

	// LogLevelError reports failures needing attention.
	LogLevelError

	// LogLevelFatal reports unrecoverable failures; the process exits.
	LogLevelFatal
)
