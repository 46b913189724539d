// Package producer defines the interface for publishing client change events (e.g. to Kafka).
package producer

import (
	"context"

	"crm-backend/internal/telemetry/domain"
)

// Producer publishes client change events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *domain.ClientEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
