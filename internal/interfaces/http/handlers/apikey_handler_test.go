package handlers

import (
	"bytes"
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
	domainservice "github.com/gateward/gateward/internal/domain/service"
	"github.com/gateward/gateward/internal/infrastructure/persistence/memory"
	"github.com/gateward/gateward/pkg/logger"
)

var testTiers = appservice.Tiers{
	Public:        models.RateLimitPolicy{Window: time.Minute, MaxRequests: 2},
	Authenticated: models.RateLimitPolicy{Window: time.Minute, MaxRequests: 10},
	Premium:       models.RateLimitPolicy{Window: time.Minute, MaxRequests: 50},
}

type keyMetricsRecorder struct {
	issued  int
	revoked int
}

func (m *keyMetricsRecorder) RecordKeyIssued()  { m.issued++ }
func (m *keyMetricsRecorder) RecordKeyRevoked() { m.revoked++ }

func keyHandlerRig(t *testing.T) (domainservice.APIKeyService, *keyMetricsRecorder, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNoopLogger()
	keys := domainservice.NewAPIKeyService(memory.NewAPIKeyRepo(), nil, log)
	recorder := &keyMetricsRecorder{}
	handler := NewAPIKeyHandler(keys, testTiers, recorder, log)

	r := gin.New()
	r.POST("/api/v1/keys", handler.Issue)
	r.GET("/api/v1/keys", handler.List)
	r.DELETE("/api/v1/keys/:id", handler.Revoke)
	return keys, recorder, r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIssue_ReturnsSecretOnce(t *testing.T) {
	_, _, r := keyHandlerRig(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/keys", map[string]interface{}{
		"name":              "reporting",
		"user_id":           "user-1",
		"tier":              "premium",
		"allowed_endpoints": []string{"/api/v1/reports/*"},
		"permissions":       []string{"read"},
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			ID        string `json:"id"`
			Key       string `json:"key"`
			Name      string `json:"name"`
			RateLimit struct {
				WindowMs    int64 `json:"window_ms"`
				MaxRequests int   `json:"max_requests"`
			} `json:"rate_limit"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Data.ID)
	assert.NotEmpty(t, resp.Data.Key)
	assert.Equal(t, "reporting", resp.Data.Name)
	assert.Equal(t, time.Minute.Milliseconds(), resp.Data.RateLimit.WindowMs)
	assert.Equal(t, 50, resp.Data.RateLimit.MaxRequests)
}

func TestIssue_ExplicitRateLimitBeatsTier(t *testing.T) {
	_, _, r := keyHandlerRig(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/keys", map[string]interface{}{
		"name": "custom",
		"tier": "public",
		"rate_limit": map[string]interface{}{
			"window_ms":    30000,
			"max_requests": 7,
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			RateLimit struct {
				WindowMs    int64 `json:"window_ms"`
				MaxRequests int   `json:"max_requests"`
			} `json:"rate_limit"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(30000), resp.Data.RateLimit.WindowMs)
	assert.Equal(t, 7, resp.Data.RateLimit.MaxRequests)
}

func TestIssue_RejectsBadRequests(t *testing.T) {
	_, _, r := keyHandlerRig(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"tier": "public"}},
		{"unknown tier", map[string]interface{}{"name": "x", "tier": "platinum"}},
		{"zero budget", map[string]interface{}{
			"name":       "x",
			"rate_limit": map[string]interface{}{"window_ms": 1000, "max_requests": 0},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/keys", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp struct {
				Success bool `json:"success"`
				Error   struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, "invalid_request", resp.Error.Code)
		})
	}
}

func TestList_FiltersAndRedactsSecret(t *testing.T) {
	_, _, r := keyHandlerRig(t)

	for _, body := range []map[string]interface{}{
		{"name": "alpha", "user_id": "user-1"},
		{"name": "beta", "user_id": "user-1"},
		{"name": "gamma", "user_id": "user-2"},
	} {
		w := doJSON(t, r, http.MethodPost, "/api/v1/keys", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/api/v1/keys?user_id=user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	for _, summary := range resp.Data {
		assert.NotContains(t, summary, "key")
		assert.NotContains(t, summary, "secret")
		assert.NotEmpty(t, summary["id"])
	}
}

func TestRevoke_IsIdempotent(t *testing.T) {
	keys, _, r := keyHandlerRig(t)

	issued, err := keys.Issue(t.Context(), models.KeySpec{Name: "doomed"})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodDelete, "/api/v1/keys/"+issued.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Revoking an already revoked key still succeeds.
	w = doJSON(t, r, http.MethodDelete, "/api/v1/keys/"+issued.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLifecycleMetrics(t *testing.T) {
	keys, recorder, r := keyHandlerRig(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/keys", map[string]interface{}{"name": "metered"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, recorder.issued)

	issued, err := keys.ListForOwner(t.Context(), "", "")
	require.NoError(t, err)
	require.Len(t, issued, 1)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/keys/"+issued[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, recorder.revoked)

	// Rejected requests leave the counters alone.
	w = doJSON(t, r, http.MethodPost, "/api/v1/keys", map[string]interface{}{"tier": "public"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/v1/keys/no-such-id", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 1, recorder.issued)
	assert.Equal(t, 1, recorder.revoked)
}

func TestRevoke_UnknownKeyReturns404(t *testing.T) {
	_, _, r := keyHandlerRig(t)

	w := doJSON(t, r, http.MethodDelete, "/api/v1/keys/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
