// Package audit implements the audit trail sinks: a Kafka producer for
// deployments with a broker, and a logging fallback for everything else.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/service"
	"github.com/gateward/gateward/pkg/logger"
)

// KafkaConfig holds producer settings for the audit topic.
type KafkaConfig struct {
	Brokers      []string      `json:"brokers" yaml:"brokers"`
	Topic        string        `json:"topic" yaml:"topic"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	BatchSize    int           `json:"batch_size" yaml:"batch_size"`
	BatchTimeout time.Duration `json:"batch_timeout" yaml:"batch_timeout"`
	RequiredAcks int           `json:"required_acks" yaml:"required_acks"`
}

// KafkaProducer publishes audit events to a Kafka topic, keyed by the key ID
// so all events for one credential land on the same partition.
type KafkaProducer struct {
	writer *kafka.Writer
	log    logger.Logger
}

var _ service.AuditService = (*KafkaProducer)(nil)

// NewKafkaProducer creates a Kafka-backed audit sink.
func NewKafkaProducer(cfg KafkaConfig, log logger.Logger) *KafkaProducer {
	if cfg.Topic == "" {
		cfg.Topic = "gateward.audit"
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
	}
	return &KafkaProducer{writer: writer, log: log.WithComponent("audit_kafka")}
}

// Record publishes one audit event. Failures are returned for the caller to
// log; they never fail the request that produced the event.
func (p *KafkaProducer) Record(ctx context.Context, event models.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.KeyID),
		Value: payload,
	})
	if err != nil {
		p.log.Error(ctx, "audit event publish failed", err,
			logger.String("event_type", string(event.EventType)),
		)
	}
	return err
}

// Close flushes buffered messages and releases the writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
