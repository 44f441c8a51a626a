package service

import (
	"regexp"
	"strings"
	"sync"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/pkg/constants"
)

// PermissionEvaluator decides whether a validated key may call a given
// endpoint with a given permission. Both checks are open-policy when the
// corresponding set on the key is empty; the checks run endpoint first, then
// permission, and short-circuit on the first failure.
type PermissionEvaluator struct {
	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

// NewPermissionEvaluator creates an evaluator with an empty pattern cache.
func NewPermissionEvaluator() *PermissionEvaluator {
	return &PermissionEvaluator{patterns: make(map[string]*regexp.Regexp)}
}

// Authorize reports whether key may access endpoint with permission.
func (e *PermissionEvaluator) Authorize(key *models.APIKey, endpoint, permission string) bool {
	if !e.endpointAllowed(key, endpoint) {
		return false
	}
	return e.permissionAllowed(key, permission)
}

func (e *PermissionEvaluator) endpointAllowed(key *models.APIKey, endpoint string) bool {
	if len(key.AllowedEndpoints) == 0 {
		return true
	}
	for _, pattern := range key.AllowedEndpoints {
		if e.matches(pattern, endpoint) {
			return true
		}
	}
	return false
}

func (e *PermissionEvaluator) permissionAllowed(key *models.APIKey, permission string) bool {
	if len(key.Permissions) == 0 {
		return true
	}
	for _, p := range key.Permissions {
		if p == constants.WildcardPermission || p == permission {
			return true
		}
	}
	return false
}

// matches tests endpoint against a glob-style pattern. A pattern without a
// wildcard is an exact match; otherwise every literal segment is quoted and
// the wildcard matches any sequence of characters, anchored at both ends.
func (e *PermissionEvaluator) matches(pattern, endpoint string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == endpoint
	}
	return e.compiled(pattern).MatchString(endpoint)
}

func (e *PermissionEvaluator) compiled(pattern string) *regexp.Regexp {
	e.mu.RLock()
	re, ok := e.patterns[pattern]
	e.mu.RUnlock()
	if ok {
		return re
	}

	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	re = regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")

	e.mu.Lock()
	e.patterns[pattern] = re
	e.mu.Unlock()
	return re
}
