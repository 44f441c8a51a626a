// Package router assembles the gin engine: global middleware, health and
// metrics endpoints, the admin key management group, and the admission-gated
// data group.
package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/gateward/gateward/internal/config"
	"github.com/gateward/gateward/internal/interfaces/http/handlers"
	"github.com/gateward/gateward/internal/interfaces/http/middleware"
	gwerrors "github.com/gateward/gateward/pkg/errors"
	"github.com/gateward/gateward/pkg/logger"
)

// Router owns the gin engine and the HTTP server lifecycle.
type Router struct {
	engine        *gin.Engine
	config        *config.Config
	log           logger.Logger
	keyHandler    *handlers.APIKeyHandler
	healthHandler *handlers.HealthHandler
	admission     gin.HandlerFunc
	tracer        trace.Tracer
	dataGroup     *gin.RouterGroup
	server        *http.Server
}

// New creates the router. admission is the middleware gating the data group.
func New(
	cfg *config.Config,
	log logger.Logger,
	keyHandler *handlers.APIKeyHandler,
	healthHandler *handlers.HealthHandler,
	admission gin.HandlerFunc,
	tracer trace.Tracer,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	return &Router{
		engine:        gin.New(),
		config:        cfg,
		log:           log.WithComponent("router"),
		keyHandler:    keyHandler,
		healthHandler: healthHandler,
		admission:     admission,
		tracer:        tracer,
	}
}

// SetupRoutes wires all routes and middleware onto the engine.
func (r *Router) SetupRoutes() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Tracing(r.tracer))
	r.engine.Use(middleware.RequestLogging(r.log))

	if len(r.config.Server.CORSOrigins) > 0 {
		r.engine.Use(cors.New(cors.Config{
			AllowOrigins: r.config.Server.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "X-API-Key", "X-Request-ID"},
			ExposeHeaders: []string{
				"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
			},
			MaxAge: 12 * time.Hour,
		}))
	}

	r.engine.GET("/health/live", r.healthHandler.Live)
	r.engine.GET("/health/ready", r.healthHandler.Ready)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Server.EnablePprof {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")

	keys := v1.Group("/keys")
	keys.Use(middleware.AdminAuth(r.config.Server.AdminToken))
	{
		keys.POST("", r.keyHandler.Issue)
		keys.GET("", r.keyHandler.List)
		keys.DELETE("/:id", r.keyHandler.Revoke)
	}

	r.dataGroup = v1.Group("")
	r.dataGroup.Use(r.admission)

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gwerrors.ToErrorResponse(gwerrors.ErrNotFound("resource not found")))
	})
}

// DataGroup returns the admission-gated group the data API mounts its routes
// on. Valid after SetupRoutes.
func (r *Router) DataGroup() *gin.RouterGroup {
	return r.dataGroup
}

// Engine exposes the underlying engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start blocks serving HTTP until the server is shut down.
func (r *Router) Start() error {
	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    r.config.Server.ReadTimeout,
		WriteTimeout:   r.config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	r.log.Info(context.Background(), "starting http server", logger.String("address", addr))
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.log.Info(ctx, "stopping http server")
	return r.server.Shutdown(ctx)
}
