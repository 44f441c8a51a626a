package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateward/gateward/pkg/logger"
)

func healthRig(t *testing.T, pingers ...Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewHealthHandler(logger.NewNoopLogger(), pingers...)
	r := gin.New()
	r.GET("/health/live", handler.Live)
	r.GET("/health/ready", handler.Ready)
	return r
}

func TestLive(t *testing.T) {
	r := healthRig(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReady_AllDependenciesHealthy(t *testing.T) {
	r := healthRig(t,
		Pinger{Name: "postgres", Ping: func(ctx context.Context) error { return nil }},
		Pinger{Name: "redis", Ping: func(ctx context.Context) error { return nil }},
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "ok", body.Checks["redis"])
}

func TestReady_FailingDependencyReturns503(t *testing.T) {
	r := healthRig(t,
		Pinger{Name: "postgres", Ping: func(ctx context.Context) error { return nil }},
		Pinger{Name: "redis", Ping: func(ctx context.Context) error {
			return errors.New("connection refused")
		}},
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Equal(t, "connection refused", body.Checks["redis"])
}
