package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gateward/gateward/pkg/logger"
)

const tracerName = "gateward"

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled        bool    `json:"enabled" yaml:"enabled"`
	JaegerEndpoint string  `json:"jaeger_endpoint" yaml:"jaeger_endpoint"`
	ServiceName    string  `json:"service_name" yaml:"service_name"`
	Environment    string  `json:"environment" yaml:"environment"`
	SamplingRate   float64 `json:"sampling_rate" yaml:"sampling_rate"`
}

// TracingManager owns the tracer provider lifecycle.
type TracingManager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	log      logger.Logger
}

// NewTracingManager initializes tracing. When disabled it hands out the
// global no-op tracer and Shutdown does nothing.
func NewTracingManager(cfg *TracingConfig, log logger.Logger) (*TracingManager, error) {
	if !cfg.Enabled {
		return &TracingManager{tracer: otel.Tracer(tracerName), log: log}, nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(cfg.JaegerEndpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("create jaeger exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = tracerName
	}
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(context.Background(), "tracing initialized",
		logger.String("endpoint", cfg.JaegerEndpoint),
		logger.Any("sampling_rate", cfg.SamplingRate),
	)

	return &TracingManager{
		tracer:   provider.Tracer(tracerName),
		provider: provider,
		log:      log,
	}, nil
}

// Tracer returns the manager's tracer for middleware instrumentation.
func (tm *TracingManager) Tracer() trace.Tracer {
	return tm.tracer
}

// StartSpan starts a span under the manager's tracer.
func (tm *TracingManager) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tm.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes pending spans.
func (tm *TracingManager) Shutdown(ctx context.Context) error {
	if tm.provider == nil {
		return nil
	}
	if err := tm.provider.Shutdown(ctx); err != nil {
		tm.log.Error(ctx, "tracing shutdown failed", err)
		return err
	}
	return nil
}
