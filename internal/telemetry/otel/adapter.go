package otel

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"crm-backend/internal/telemetry"
	"crm-backend/internal/telemetry/domain"
)

// instrumentationName is the OTel logger scope for client change events.
const instrumentationName = "crm-backend.client-events"

// recordEmitter is the subset of otellog.Logger the adapter needs.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(instrumentationName)}
}

// NewEventEmitterWithLogger returns an EventEmitter that writes records to logger. Used by tests to capture records.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.ClientEvent) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the event to an OTel log record with the event JSON as body.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.ClientEvent) error {
	if event == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	rec := otellog.Record{}
	rec.SetTimestamp(event.OccurredAt)
	if rec.Timestamp().IsZero() {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetObservedTimestamp(time.Now().UTC())
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetSeverityText("INFO")
	rec.SetBody(otellog.BytesValue(body))
	rec.AddAttributes(
		otellog.String("event_id", event.ID),
		otellog.String("event_type", string(event.Type)),
	)
	if event.ClientID != "" {
		rec.AddAttributes(otellog.String("client_id", event.ClientID))
	}
	if event.RequestID != "" {
		rec.AddAttributes(otellog.String("request_id", event.RequestID))
	}
	if len(event.ChangedFields) > 0 {
		fields := make([]otellog.Value, len(event.ChangedFields))
		for i, f := range event.ChangedFields {
			fields[i] = otellog.StringValue(f)
		}
		rec.AddAttributes(otellog.Slice("changed_fields", fields...))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
