package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gateward/gateward/pkg/logger"
)

// Pinger is a named dependency the readiness check probes.
type Pinger struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness endpoints.
type HealthHandler struct {
	pingers []Pinger
	log     logger.Logger
}

// NewHealthHandler creates the health handler over the given dependency
// probes.
func NewHealthHandler(log logger.Logger, pingers ...Pinger) *HealthHandler {
	return &HealthHandler{pingers: pingers, log: log.WithComponent("health")}
}

// Live handles GET /health/live: the process is up.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": time.Now().UTC()})
}

// Ready handles GET /health/ready: every dependency answers a ping. Probes
// run concurrently with a shared deadline.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.pingers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, p := range h.pingers {
		wg.Add(1)
		go func(p Pinger) {
			defer wg.Done()
			status := "ok"
			if err := p.Ping(ctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			checks[p.Name] = status
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	httpStatus := http.StatusOK
	overall := "ready"
	for name, status := range checks {
		if status != "ok" {
			httpStatus = http.StatusServiceUnavailable
			overall = "not_ready"
			h.log.Warn(ctx, "readiness probe failed",
				logger.String("dependency", name),
				logger.String("status", status),
			)
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    overall,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}
