// Package domain holds the client change event published after every successful write.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names the kind of change a ClientEvent records.
type EventType string

const (
	EventClientCreated EventType = "client.created"
	EventClientUpdated EventType = "client.updated"
	EventClientDeleted EventType = "client.deleted"
)

// ClientEvent records a change to a client. It is the Kafka message value and the Loki log line.
type ClientEvent struct {
	ID       string    `json:"id"`
	Type     EventType `json:"type"`
	ClientID string    `json:"client_id"`
	// ChangedFields lists the stored keys written by an update; empty for create and delete.
	ChangedFields []string  `json:"changed_fields,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewClientEvent returns an event with a fresh random ID.
func NewClientEvent(eventType EventType, clientID string, changedFields []string, requestID string, occurredAt time.Time) *ClientEvent {
	return &ClientEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		ClientID:      clientID,
		ChangedFields: changedFields,
		RequestID:     requestID,
		OccurredAt:    occurredAt.UTC(),
	}
}
