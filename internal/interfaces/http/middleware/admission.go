// Package middleware holds the gin middleware of the HTTP layer: the
// admission gate, admin authentication, request IDs, and request logging.
package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appservice "github.com/gateward/gateward/internal/application/service"
	"github.com/gateward/gateward/internal/infrastructure/ratelimit"
	"github.com/gateward/gateward/pkg/constants"
	gwerrors "github.com/gateward/gateward/pkg/errors"
	"github.com/gateward/gateward/pkg/logger"
)

// Admission gates a route group behind the admission pipeline. Every response
// carries the X-RateLimit-* headers; denials map to 429 (with Retry-After),
// 401, or 403 per the error taxonomy.
func Admission(admission appservice.AdmissionService, keyPrefix string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := appservice.AdmissionRequest{
			RateKey:    ratelimit.ResolveKey(c.Request, keyPrefix),
			Secret:     c.GetHeader(constants.HeaderAPIKey),
			Endpoint:   c.Request.URL.Path,
			Permission: methodPermission(c.Request.Method),
			ClientIP:   c.ClientIP(),
		}

		decision := admission.Admit(c.Request.Context(), req)

		if rl := decision.RateLimit; rl != nil {
			c.Header(constants.HeaderRateLimitLimit, strconv.Itoa(rl.Limit))
			c.Header(constants.HeaderRateLimitRemaining, strconv.Itoa(rl.Remaining))
			c.Header(constants.HeaderRateLimitReset, strconv.FormatInt(rl.ResetAt.Unix(), 10))
		}

		if !decision.Allowed {
			if decision.Outcome == appservice.OutcomeRateLimited && decision.RateLimit != nil {
				c.Header(constants.HeaderRetryAfter, strconv.Itoa(decision.RateLimit.RetryAfterSeconds))
			}
			status := http.StatusInternalServerError
			var body interface{} = gwerrors.ToErrorResponse(gwerrors.ErrInternal("admission failed"))
			if decision.Err != nil {
				status = decision.Err.HTTPStatus()
				if decision.Outcome == appservice.OutcomeRateLimited {
					// Rate limit denials return the structured
					// limit response, not a bare error.
					body = decision.RateLimit
				} else {
					body = gwerrors.ToErrorResponse(decision.Err)
				}
			}
			c.AbortWithStatusJSON(status, body)
			return
		}

		if decision.Key != nil {
			ctx := context.WithValue(c.Request.Context(), constants.ContextKeyAPIKeyID, decision.Key.ID)
			c.Request = c.Request.WithContext(ctx)
			c.Set(string(constants.ContextKeyAPIKeyID), decision.Key.ID)
		}
		c.Next()
	}
}

// methodPermission maps an HTTP method onto the named permission it
// exercises.
func methodPermission(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	case http.MethodDelete:
		return "delete"
	default:
		return "write"
	}
}
