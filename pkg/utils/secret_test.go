package utils_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gateward/gateward/pkg/utils"
)

func TestGenerateSecret(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s1, err := utils.GenerateSecret(now)
	require.NoError(t, err)
	s2, err := utils.GenerateSecret(now)
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	assert.True(t, utils.HasSecretPrefix(s1))

	parts := strings.Split(s1, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "gw", parts[0])
	// 16 random bytes hex-encoded.
	assert.Len(t, parts[2], 32)
}

func TestGenerateSecret_SortsByIssuanceTime(t *testing.T) {
	early, err := utils.GenerateSecret(time.UnixMilli(1_000_000_000_000))
	require.NoError(t, err)
	late, err := utils.GenerateSecret(time.UnixMilli(2_000_000_000_000))
	require.NoError(t, err)

	// Same-length base36 timestamps sort lexically in issuance order.
	assert.Less(t, strings.Split(early, "_")[1], strings.Split(late, "_")[1])
}

func TestHasSecretPrefix(t *testing.T) {
	assert.True(t, utils.HasSecretPrefix("gw_abc_def"))
	assert.False(t, utils.HasSecretPrefix("sk_live_123"))
	assert.False(t, utils.HasSecretPrefix(""))
}
