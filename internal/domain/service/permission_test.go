package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/service"
)

func TestAuthorize_WildcardEndpoints(t *testing.T) {
	eval := service.NewPermissionEvaluator()
	key := &models.APIKey{AllowedEndpoints: []string{"/api/v1/*"}}

	tests := []struct {
		endpoint string
		want     bool
	}{
		{"/api/v1/users", true},
		{"/api/v1/", true},
		{"/api/v2/users", false},
		{"/api/v1", false},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, eval.Authorize(key, tt.endpoint, "read"))
		})
	}
}

func TestAuthorize_ExactEndpointMatch(t *testing.T) {
	eval := service.NewPermissionEvaluator()
	key := &models.APIKey{AllowedEndpoints: []string{"/api/v1/status"}}

	assert.True(t, eval.Authorize(key, "/api/v1/status", "read"))
	assert.False(t, eval.Authorize(key, "/api/v1/status/extra", "read"))
}

func TestAuthorize_PatternMetacharactersAreLiteral(t *testing.T) {
	eval := service.NewPermissionEvaluator()
	key := &models.APIKey{AllowedEndpoints: []string{"/api/v1.0/*"}}

	assert.True(t, eval.Authorize(key, "/api/v1.0/users", "read"))
	// The dot must not act as a regex wildcard.
	assert.False(t, eval.Authorize(key, "/api/v1x0/users", "read"))
}

func TestAuthorize_WildcardPermissionSupersedesList(t *testing.T) {
	eval := service.NewPermissionEvaluator()
	key := &models.APIKey{Permissions: []string{"read", "*"}}

	assert.True(t, eval.Authorize(key, "/anything", "write"))
}

func TestAuthorize_PermissionList(t *testing.T) {
	eval := service.NewPermissionEvaluator()
	key := &models.APIKey{Permissions: []string{"read"}}

	assert.True(t, eval.Authorize(key, "/data", "read"))
	assert.False(t, eval.Authorize(key, "/data", "write"))
}

func TestAuthorize_EmptySetsAreOpenPolicy(t *testing.T) {
	eval := service.NewPermissionEvaluator()
	key := &models.APIKey{}

	assert.True(t, eval.Authorize(key, "/api/v9/whatever", "admin"))
}

func TestAuthorize_EndpointCheckedBeforePermission(t *testing.T) {
	eval := service.NewPermissionEvaluator()
	key := &models.APIKey{
		AllowedEndpoints: []string{"/api/v1/*"},
		Permissions:      []string{"*"},
	}

	// Wildcard permission cannot rescue an endpoint miss.
	assert.False(t, eval.Authorize(key, "/api/v2/users", "read"))
}
