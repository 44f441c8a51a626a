package ratelimit_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gateward/gateward/internal/infrastructure/ratelimit"
	"github.com/gateward/gateward/pkg/constants"
)

func TestResolveKey_CredentialTakesPrecedence(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/users", nil)
	r.Header.Set(constants.HeaderAPIKey, "gw_abc_deadbeef")
	r.Header.Set(constants.HeaderForwardedFor, "203.0.113.9")

	assert.Equal(t, "rl:key:gw_abc_deadbeef", ratelimit.ResolveKey(r, "rl"))
}

func TestResolveKey_Deterministic(t *testing.T) {
	r1 := httptest.NewRequest("GET", "/api/v1/users", nil)
	r1.RemoteAddr = "198.51.100.7:41234"
	r2 := httptest.NewRequest("POST", "/api/v1/orders", nil)
	r2.RemoteAddr = "198.51.100.7:55678"

	// Same client, different ports and paths: same key.
	assert.Equal(t, ratelimit.ResolveKey(r1, "rl"), ratelimit.ResolveKey(r2, "rl"))
}

func TestResolveKey_DistinctClients(t *testing.T) {
	r1 := httptest.NewRequest("GET", "/", nil)
	r1.RemoteAddr = "198.51.100.7:41234"
	r2 := httptest.NewRequest("GET", "/", nil)
	r2.RemoteAddr = "198.51.100.8:41234"

	assert.NotEqual(t, ratelimit.ResolveKey(r1, "rl"), ratelimit.ResolveKey(r2, "rl"))
}

func TestResolveKey_HeaderPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{
			name:       "forwarded-for wins",
			forwarded:  "203.0.113.9, 10.0.0.1",
			realIP:     "203.0.113.50",
			remoteAddr: "10.0.0.2:9999",
			want:       "rl:ip:203.0.113.9",
		},
		{
			name:       "real-ip next",
			realIP:     "203.0.113.50",
			remoteAddr: "10.0.0.2:9999",
			want:       "rl:ip:203.0.113.50",
		},
		{
			name:       "remote addr host only",
			remoteAddr: "10.0.0.2:9999",
			want:       "rl:ip:10.0.0.2",
		},
		{
			name: "no address at all",
			want: "rl:ip:" + constants.UnknownClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set(constants.HeaderForwardedFor, tt.forwarded)
			}
			if tt.realIP != "" {
				r.Header.Set(constants.HeaderRealIP, tt.realIP)
			}
			assert.Equal(t, tt.want, ratelimit.ResolveKey(r, "rl"))
		})
	}
}
