// Package dto defines the transport shapes of the management API.
package dto

import (
	"time"

	"github.com/gateward/gateward/internal/domain/models"
	gwerrors "github.com/gateward/gateward/pkg/errors"
)

// APIResponse is the uniform envelope for management API responses.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO carries a stable error code and a human-readable message.
type ErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse wraps data in the response envelope.
func SuccessResponse(data interface{}, requestID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse wraps an error in the response envelope, mapping it to its
// stable code.
func ErrorResponse(err error, requestID string) *APIResponse {
	code := string(gwerrors.CodeInternal)
	message := "internal error"
	if appErr, ok := gwerrors.As(err); ok {
		code = string(appErr.Code())
		message = appErr.Error()
	}
	return &APIResponse{
		Success:   false,
		Error:     &ErrorDTO{Code: code, Message: message},
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// IssueKeyRequest is the body for POST /api/v1/keys.
type IssueKeyRequest struct {
	Name             string     `json:"name" binding:"required"`
	Description      string     `json:"description"`
	UserID           string     `json:"user_id"`
	OrganizationID   string     `json:"organization_id"`
	Tier             string     `json:"tier"`
	RateLimit        *RateLimit `json:"rate_limit"`
	AllowedEndpoints []string   `json:"allowed_endpoints"`
	Permissions      []string   `json:"permissions"`
	ExpiresAt        *time.Time `json:"expires_at"`
}

// RateLimit is the wire form of a rate limit policy.
type RateLimit struct {
	WindowMs    int64 `json:"window_ms" binding:"required,gt=0"`
	MaxRequests int   `json:"max_requests" binding:"required,gt=0"`
}

// IssuedKeyResponse is returned exactly once, at issuance: the only time the
// secret leaves the service.
type IssuedKeyResponse struct {
	ID        string     `json:"id"`
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	RateLimit RateLimit  `json:"rate_limit"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// KeySummary is the redacted listing form of a key; the secret is never
// included.
type KeySummary struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	UserID           string     `json:"user_id,omitempty"`
	OrganizationID   string     `json:"organization_id,omitempty"`
	Enabled          bool       `json:"enabled"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RateLimit        RateLimit  `json:"rate_limit"`
	AllowedEndpoints []string   `json:"allowed_endpoints,omitempty"`
	Permissions      []string   `json:"permissions,omitempty"`
	UsageCount       int64      `json:"usage_count"`
	LastUsedAt       *time.Time `json:"last_used,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
}

// NewIssuedKeyResponse builds the one-time issuance response.
func NewIssuedKeyResponse(key *models.APIKey) *IssuedKeyResponse {
	return &IssuedKeyResponse{
		ID:   key.ID,
		Key:  key.Secret,
		Name: key.Name,
		RateLimit: RateLimit{
			WindowMs:    key.RateLimit.Window.Milliseconds(),
			MaxRequests: key.RateLimit.MaxRequests,
		},
		CreatedAt: key.CreatedAt,
		ExpiresAt: key.ExpiresAt,
	}
}

// NewKeySummary builds the redacted listing form.
func NewKeySummary(key *models.APIKey) *KeySummary {
	return &KeySummary{
		ID:             key.ID,
		Name:           key.Name,
		Description:    key.Description,
		UserID:         key.UserID,
		OrganizationID: key.OrganizationID,
		Enabled:        key.Enabled,
		RevokedAt:      key.RevokedAt,
		RateLimit: RateLimit{
			WindowMs:    key.RateLimit.Window.Milliseconds(),
			MaxRequests: key.RateLimit.MaxRequests,
		},
		AllowedEndpoints: key.AllowedEndpoints,
		Permissions:      key.Permissions,
		UsageCount:       key.UsageCount,
		LastUsedAt:       key.LastUsedAt,
		CreatedAt:        key.CreatedAt,
		ExpiresAt:        key.ExpiresAt,
	}
}

// ToKeySpec converts the issue request to the domain spec. An unknown tier is
// rejected by the service's policy validation, not here.
func (r *IssueKeyRequest) ToKeySpec() models.KeySpec {
	spec := models.KeySpec{
		Name:             r.Name,
		Description:      r.Description,
		UserID:           r.UserID,
		OrganizationID:   r.OrganizationID,
		AllowedEndpoints: r.AllowedEndpoints,
		Permissions:      r.Permissions,
		ExpiresAt:        r.ExpiresAt,
	}
	if r.RateLimit != nil {
		spec.RateLimit = &models.RateLimitPolicy{
			Window:      time.Duration(r.RateLimit.WindowMs) * time.Millisecond,
			MaxRequests: r.RateLimit.MaxRequests,
		}
	}
	return spec
}
