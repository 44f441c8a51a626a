// Package handlers holds the gin handlers of the management and health
// endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gateward/gateward/internal/application/dto"
	appservice "github.com/gateward/gateward/internal/application/service"
	"github.com/gateward/gateward/internal/domain/models"
	domainservice "github.com/gateward/gateward/internal/domain/service"
	"github.com/gateward/gateward/pkg/constants"
	gwerrors "github.com/gateward/gateward/pkg/errors"
	"github.com/gateward/gateward/pkg/logger"
)

// KeyMetrics counts key lifecycle events. May be nil.
type KeyMetrics interface {
	RecordKeyIssued()
	RecordKeyRevoked()
}

// APIKeyHandler serves the key management endpoints. All of them sit behind
// the admin token middleware.
type APIKeyHandler struct {
	keys    domainservice.APIKeyService
	tiers   appservice.Tiers
	metrics KeyMetrics
	log     logger.Logger
}

// NewAPIKeyHandler creates the key management handler.
func NewAPIKeyHandler(keys domainservice.APIKeyService, tiers appservice.Tiers, metrics KeyMetrics, log logger.Logger) *APIKeyHandler {
	return &APIKeyHandler{keys: keys, tiers: tiers, metrics: metrics, log: log.WithComponent("apikey_handler")}
}

// Issue handles POST /api/v1/keys. The response is the only time the secret
// is ever returned.
func (h *APIKeyHandler) Issue(c *gin.Context) {
	var req dto.IssueKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, gwerrors.ErrInvalidRequest(err.Error()))
		return
	}

	spec := req.ToKeySpec()
	if spec.RateLimit == nil && req.Tier != "" {
		policy, ok := h.tierPolicy(req.Tier)
		if !ok {
			h.sendError(c, gwerrors.ErrInvalidRequest("unknown tier: "+req.Tier))
			return
		}
		spec.RateLimit = &policy
	}

	key, err := h.keys.Issue(c.Request.Context(), spec)
	if err != nil {
		h.sendError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordKeyIssued()
	}
	c.JSON(http.StatusCreated, dto.SuccessResponse(dto.NewIssuedKeyResponse(key), requestID(c)))
}

// List handles GET /api/v1/keys, filtered by user_id and organization_id
// query parameters. Secrets are never included.
func (h *APIKeyHandler) List(c *gin.Context) {
	keys, err := h.keys.ListForOwner(c.Request.Context(), c.Query("user_id"), c.Query("organization_id"))
	if err != nil {
		h.sendError(c, err)
		return
	}

	summaries := make([]*dto.KeySummary, 0, len(keys))
	for _, key := range keys {
		summaries = append(summaries, dto.NewKeySummary(key))
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(summaries, requestID(c)))
}

// Revoke handles DELETE /api/v1/keys/:id. Idempotent; revoking a revoked key
// succeeds.
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		h.sendError(c, gwerrors.ErrInvalidRequest("key id is required"))
		return
	}

	if err := h.keys.Revoke(c.Request.Context(), id); err != nil {
		h.sendError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordKeyRevoked()
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(gin.H{"id": id, "status": string(constants.KeyStatusRevoked)}, requestID(c)))
}

func (h *APIKeyHandler) tierPolicy(tier string) (models.RateLimitPolicy, bool) {
	switch constants.RateLimitTier(tier) {
	case constants.TierPublic:
		return h.tiers.Public, true
	case constants.TierAuthenticated:
		return h.tiers.Authenticated, true
	case constants.TierPremium:
		return h.tiers.Premium, true
	}
	return models.RateLimitPolicy{}, false
}

func (h *APIKeyHandler) sendError(c *gin.Context, err error) {
	c.JSON(gwerrors.HTTPStatus(err), dto.ErrorResponse(err, requestID(c)))
}

func requestID(c *gin.Context) string {
	if id, ok := c.Request.Context().Value(constants.ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}
