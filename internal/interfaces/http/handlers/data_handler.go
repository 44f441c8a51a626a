package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gateward/gateward/internal/application/dto"
	"github.com/gateward/gateward/pkg/constants"
)

// DataHandler serves the built-in data endpoint behind the admission gate.
// Real deployments mount their own routes on the gated group; this endpoint
// doubles as a smoke test for the pipeline.
type DataHandler struct{}

// NewDataHandler creates the data handler.
func NewDataHandler() *DataHandler {
	return &DataHandler{}
}

// Get handles GET /api/v1/data. It echoes the caller's admission context.
func (h *DataHandler) Get(c *gin.Context) {
	payload := gin.H{
		"timestamp": time.Now().UTC(),
	}
	if keyID, ok := c.Get(string(constants.ContextKeyAPIKeyID)); ok {
		payload["api_key_id"] = keyID
	} else {
		payload["anonymous"] = true
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(payload, requestID(c)))
}
