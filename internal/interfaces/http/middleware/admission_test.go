package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appservice "github.com/gateward/gateward/internal/application/service"
	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/pkg/constants"
	gwerrors "github.com/gateward/gateward/pkg/errors"
	"github.com/gateward/gateward/pkg/logger"
)

type stubAdmission struct {
	decision *appservice.AdmissionDecision
	lastReq  appservice.AdmissionRequest
}

func (s *stubAdmission) Admit(_ context.Context, req appservice.AdmissionRequest) *appservice.AdmissionDecision {
	s.lastReq = req
	return s.decision
}

func admissionRig(t *testing.T, decision *appservice.AdmissionDecision) (*stubAdmission, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stub := &stubAdmission{decision: decision}
	r := gin.New()
	r.Use(Admission(stub, "rl", logger.NewNoopLogger()))
	handler := func(c *gin.Context) {
		keyID, _ := c.Get(string(constants.ContextKeyAPIKeyID))
		c.JSON(http.StatusOK, gin.H{"key_id": keyID})
	}
	r.GET("/api/v1/reports", handler)
	r.DELETE("/api/v1/reports", handler)
	return stub, r
}

func TestAdmission_AllowedSetsHeadersAndKeyID(t *testing.T) {
	resetAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	stub, r := admissionRig(t, &appservice.AdmissionDecision{
		Allowed: true,
		Outcome: appservice.OutcomeAdmitted,
		RateLimit: &models.RateLimitResult{
			Allowed:   true,
			Limit:     100,
			Remaining: 99,
			ResetAt:   resetAt,
		},
		Key: &models.APIKey{ID: "key-1"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	req.Header.Set(constants.HeaderAPIKey, "gw_abc_deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100", w.Header().Get(constants.HeaderRateLimitLimit))
	assert.Equal(t, "99", w.Header().Get(constants.HeaderRateLimitRemaining))
	assert.Equal(t, "1717243200", w.Header().Get(constants.HeaderRateLimitReset))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "key-1", body["key_id"])

	assert.Equal(t, "gw_abc_deadbeef", stub.lastReq.Secret)
	assert.Equal(t, "/api/v1/reports", stub.lastReq.Endpoint)
	assert.Equal(t, "read", stub.lastReq.Permission)
}

func TestAdmission_RateLimitedReturnsStructuredBody(t *testing.T) {
	resetAt := time.Now().Add(30 * time.Second)
	_, r := admissionRig(t, &appservice.AdmissionDecision{
		Allowed: false,
		Outcome: appservice.OutcomeRateLimited,
		RateLimit: &models.RateLimitResult{
			Allowed:           false,
			Limit:             10,
			Remaining:         0,
			ResetAt:           resetAt,
			RetryAfterSeconds: 30,
		},
		Err: gwerrors.ErrRateLimited(10, 30),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get(constants.HeaderRetryAfter))
	assert.Equal(t, "0", w.Header().Get(constants.HeaderRateLimitRemaining))

	var body struct {
		Success    bool  `json:"success"`
		Limit      int   `json:"limit"`
		Remaining  int   `json:"remaining"`
		ResetTime  int64 `json:"reset_time"`
		RetryAfter int   `json:"retry_after"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, 10, body.Limit)
	assert.Equal(t, 0, body.Remaining)
	assert.Equal(t, resetAt.UnixMilli(), body.ResetTime)
	assert.Equal(t, 30, body.RetryAfter)
}

func TestAdmission_UnauthenticatedReturns401(t *testing.T) {
	_, r := admissionRig(t, &appservice.AdmissionDecision{
		Allowed: false,
		Outcome: appservice.OutcomeUnauthenticated,
		RateLimit: &models.RateLimitResult{
			Allowed:   true,
			Limit:     100,
			Remaining: 98,
			ResetAt:   time.Now().Add(time.Minute),
		},
		Err: gwerrors.ErrUnauthenticated(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	req.Header.Set(constants.HeaderAPIKey, "gw_bogus")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body gwerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(gwerrors.CodeUnauthenticated), body.Error)
}

func TestAdmission_PermissionDeniedReturns403(t *testing.T) {
	_, r := admissionRig(t, &appservice.AdmissionDecision{
		Allowed: false,
		Outcome: appservice.OutcomePermissionDenied,
		RateLimit: &models.RateLimitResult{
			Allowed:   true,
			Limit:     100,
			Remaining: 97,
			ResetAt:   time.Now().Add(time.Minute),
		},
		Err: gwerrors.ErrPermissionDenied(),
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reports", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)

	var body gwerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(gwerrors.CodePermissionDenied), body.Error)
}

func TestMethodPermission(t *testing.T) {
	assert.Equal(t, "read", methodPermission(http.MethodGet))
	assert.Equal(t, "read", methodPermission(http.MethodHead))
	assert.Equal(t, "read", methodPermission(http.MethodOptions))
	assert.Equal(t, "delete", methodPermission(http.MethodDelete))
	assert.Equal(t, "write", methodPermission(http.MethodPost))
	assert.Equal(t, "write", methodPermission(http.MethodPut))
}
