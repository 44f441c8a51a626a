package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gateward/gateward/pkg/constants"
	gwerrors "github.com/gateward/gateward/pkg/errors"
)

// AdminAuth guards the key management endpoints with a shared admin token.
// An empty configured token disables the endpoints entirely rather than
// leaving them open.
func AdminAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" {
			c.AbortWithStatusJSON(http.StatusNotFound,
				gwerrors.ToErrorResponse(gwerrors.ErrNotFound("not found")))
			return
		}

		presented := c.GetHeader(constants.HeaderAdminToken)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(adminToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gwerrors.ToErrorResponse(gwerrors.ErrUnauthenticated()))
			return
		}
		c.Next()
	}
}
