package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventType names a key lifecycle event worth recording.
type AuditEventType string

const (
	// AuditKeyIssued records the issuance of a new API key.
	AuditKeyIssued AuditEventType = "key_issued"

	// AuditKeyRevoked records a key revocation.
	AuditKeyRevoked AuditEventType = "key_revoked"

	// AuditValidationRejected records a failed credential validation.
	AuditValidationRejected AuditEventType = "validation_rejected"
)

// AuditEvent is a single audit trail entry. Events are emitted best-effort;
// a delivery failure never affects the request that produced the event.
type AuditEvent struct {
	EventID   uuid.UUID      `json:"event_id"`
	EventType AuditEventType `json:"event_type"`
	KeyID     string         `json:"key_id,omitempty"`
	ActorID   string         `json:"actor_id,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	Message   string         `json:"message,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewAuditEvent creates an audit event stamped with the current time.
func NewAuditEvent(eventType AuditEventType, keyID, message string) AuditEvent {
	return AuditEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		KeyID:     keyID,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// WithActor sets the acting principal on the event.
func (e AuditEvent) WithActor(actorID string) AuditEvent {
	e.ActorID = actorID
	return e
}

// WithIP sets the source address on the event.
func (e AuditEvent) WithIP(ip string) AuditEvent {
	e.IPAddress = ip
	return e
}
