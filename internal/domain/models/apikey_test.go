package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gateward/gateward/internal/domain/models"
)

func TestAPIKey_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{"no expiry never expires", nil, false},
		{"future expiry", &future, false},
		{"past expiry", &past, true},
		{"borderline counts as expired", &now, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := &models.APIKey{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, key.IsExpired(now))
		})
	}
}

func TestAPIKey_IsUsable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	tests := []struct {
		name      string
		enabled   bool
		expiresAt *time.Time
		want      bool
	}{
		{"enabled and unexpired", true, nil, true},
		{"disabled", false, nil, false},
		{"expiry beats enabled flag", true, &past, false},
		{"disabled and expired", false, &past, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := &models.APIKey{Enabled: tt.enabled, ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, key.IsUsable(now))
		})
	}
}

func TestAPIKey_Revoke(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := &models.APIKey{Enabled: true}

	key.Revoke(now)
	assert.False(t, key.Enabled)
	assert.Equal(t, now, *key.RevokedAt)

	// Revoking again keeps the original revocation time.
	key.Revoke(now.Add(time.Hour))
	assert.False(t, key.Enabled)
	assert.Equal(t, now, *key.RevokedAt)
}

func TestAPIKey_RevocationSurvivesEnabledFlip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := &models.APIKey{Enabled: true}

	key.Revoke(now)
	// Simulate a direct store mutation flipping the flag back.
	key.Enabled = true

	assert.False(t, key.IsUsable(now))
}

func TestAPIKey_IsUnrestricted(t *testing.T) {
	assert.True(t, (&models.APIKey{}).IsUnrestricted())
	assert.False(t, (&models.APIKey{Permissions: []string{"read"}}).IsUnrestricted())
	assert.False(t, (&models.APIKey{AllowedEndpoints: []string{"/api/*"}}).IsUnrestricted())
}

func TestWindowCounter_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	open := &models.WindowCounter{Key: "k", Count: 3, WindowEnd: now.Add(time.Second)}
	assert.False(t, open.Expired(now))

	closed := &models.WindowCounter{Key: "k", Count: 3, WindowEnd: now}
	assert.True(t, closed.Expired(now))
}
