// Package utils provides small shared helpers for the gateward admission
// control service. This file contains bearer secret generation.
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gateward/gateward/pkg/constants"
)

// GenerateSecret produces a new opaque bearer secret:
//
//	gw_<base36 unix-ms>_<32 hex chars>
//
// The timestamp component gives rough chronological sortability; the random
// component carries 128 bits of entropy from crypto/rand. Secrets are only
// ever generated server-side.
func GenerateSecret(now time.Time) (string, error) {
	buf := make([]byte, constants.SecretRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}

	ts := strconv.FormatInt(now.UnixMilli(), 36)
	return constants.SecretPrefix + "_" + ts + "_" + hex.EncodeToString(buf), nil
}

// HasSecretPrefix reports whether s looks like a secret issued by this
// service. Used only for cheap pre-filtering; possession of the full secret is
// the actual credential.
func HasSecretPrefix(s string) bool {
	return strings.HasPrefix(s, constants.SecretPrefix+"_")
}
