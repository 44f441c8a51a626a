// Package monitoring holds the observability implementations: the zap logger
// behind pkg/logger, Prometheus metrics, and OpenTelemetry tracing setup.
package monitoring

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gateward/gateward/pkg/constants"
	"github.com/gateward/gateward/pkg/logger"
)

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`
	// Format is json or console.
	Format string `json:"format" yaml:"format"`
}

type zapLogger struct {
	zl *zap.Logger
}

// NewZapLogger builds the production logger writing JSON (or console) lines to
// stdout.
func NewZapLogger(cfg *LogConfig) (logger.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	return &zapLogger{
		zl: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)),
	}, nil
}

func (l *zapLogger) Debug(ctx context.Context, message string, fields ...logger.Field) {
	l.zl.Debug(message, l.convert(ctx, fields)...)
}

func (l *zapLogger) Info(ctx context.Context, message string, fields ...logger.Field) {
	l.zl.Info(message, l.convert(ctx, fields)...)
}

func (l *zapLogger) Warn(ctx context.Context, message string, fields ...logger.Field) {
	l.zl.Warn(message, l.convert(ctx, fields)...)
}

func (l *zapLogger) Error(ctx context.Context, message string, err error, fields ...logger.Field) {
	l.zl.Error(message, append(l.convert(ctx, fields), zap.Error(err))...)
}

func (l *zapLogger) Fatal(ctx context.Context, message string, err error, fields ...logger.Field) {
	l.zl.Fatal(message, append(l.convert(ctx, fields), zap.Error(err))...)
}

func (l *zapLogger) WithFields(fields ...logger.Field) logger.Logger {
	return &zapLogger{zl: l.zl.With(l.convert(context.Background(), fields)...)}
}

func (l *zapLogger) WithComponent(component string) logger.Logger {
	return &zapLogger{zl: l.zl.With(zap.String("component", component))}
}

// convert maps logger fields to zap fields and threads the request ID from
// the context when present.
func (l *zapLogger) convert(ctx context.Context, fields []logger.Field) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)+1)
	if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok && requestID != "" {
		zapFields = append(zapFields, zap.String("request_id", requestID))
	}
	for _, f := range fields {
		zapFields = append(zapFields, zap.Any(f.Key, f.Value))
	}
	return zapFields
}

// Sync flushes buffered log entries; called on shutdown.
func Sync(l logger.Logger) {
	if zl, ok := l.(*zapLogger); ok {
		_ = zl.zl.Sync()
	}
}
