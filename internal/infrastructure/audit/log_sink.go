package audit

import (
	"context"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/service"
	"github.com/gateward/gateward/pkg/logger"
)

// LogSink writes audit events to the structured log. Used when no Kafka
// brokers are configured, so the trail is still observable in development and
// single-node deployments.
type LogSink struct {
	log logger.Logger
}

var _ service.AuditService = (*LogSink)(nil)

// NewLogSink creates a log-backed audit sink.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log.WithComponent("audit")}
}

// Record writes the event at info level.
func (s *LogSink) Record(ctx context.Context, event models.AuditEvent) error {
	s.log.Info(ctx, "audit event",
		logger.String("event_id", event.EventID.String()),
		logger.String("event_type", string(event.EventType)),
		logger.String("key_id", event.KeyID),
		logger.String("actor_id", event.ActorID),
		logger.String("ip_address", event.IPAddress),
		logger.String("message", event.Message),
		logger.Time("timestamp", event.Timestamp),
	)
	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error {
	return nil
}
