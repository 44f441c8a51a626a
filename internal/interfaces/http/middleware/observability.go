package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gateward/gateward/pkg/constants"
	"github.com/gateward/gateward/pkg/logger"
)

// RequestID assigns each request a correlation ID, honoring one supplied by
// the caller, and threads it through the context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(constants.HeaderRequestID, requestID)
		c.Next()
	}
}

// Tracing starts one span per request, named "METHOD /route/template", and
// threads it through the request context so downstream calls can attach
// child spans.
func Tracing(tracer trace.Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "not_found"
		}

		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.path", route),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.String("http.client_ip", c.ClientIP()),
		)
	}
}

// RequestLogging logs one line per request with method, path, status and
// latency. Health and metrics probes stay at debug level to keep the log
// readable.
func RequestLogging(log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}

		switch path := c.Request.URL.Path; {
		case path == "/metrics" || path == "/health/live" || path == "/health/ready":
			log.Debug(c.Request.Context(), "request", fields...)
		case c.Writer.Status() >= 500:
			log.Error(c.Request.Context(), "request failed", nil, fields...)
		default:
			log.Info(c.Request.Context(), "request", fields...)
		}
	}
}
