package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crm-backend/internal/client/domain"
	"crm-backend/internal/client/repository"
	"crm-backend/internal/telemetry"
	telemetrydomain "crm-backend/internal/telemetry/domain"
)

// Sentinel errors for the client service; the HTTP handler maps them to status codes.
var (
	// ErrNotFound is returned for a malformed identifier and for a well-formed one with no record.
	ErrNotFound = errors.New("client not found")
	// ErrUnavailable is returned by every operation when no database is configured.
	ErrUnavailable = errors.New("database not configured")
)

// Option configures a ClientService.
type Option func(*ClientService)

// WithClock sets the time source used for updated_at and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ClientService) {
		if now != nil {
			s.now = now
		}
	}
}

// ClientService implements create, list, get, partial update and delete of client records.
// It holds no mutable state; concurrent calls are safe when the repository is.
type ClientService struct {
	repo    repository.Repository
	emitter telemetry.EventEmitter
	now     func() time.Time
}

// NewClientService returns a ClientService backed by repo. repo may be nil when no database is configured,
// in which case every operation returns ErrUnavailable. emitter may be nil to disable change events.
func NewClientService(repo repository.Repository, emitter telemetry.EventEmitter, opts ...Option) *ClientService {
	s := &ClientService{
		repo:    repo,
		emitter: emitter,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a database is configured.
func (s *ClientService) Available() bool {
	return s.repo != nil
}

// Create validates payload, stores a new client and returns it as stored.
func (s *ClientService) Create(ctx context.Context, payload []byte) (*domain.Client, error) {
	if s.repo == nil {
		return nil, ErrUnavailable
	}
	c, err := domain.DecodeClient(payload)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("client: created record %s not readable", id)
	}
	s.emit(ctx, telemetrydomain.EventClientCreated, id, nil)
	return created, nil
}

// List returns every client. An empty store yields an empty, non-nil slice.
func (s *ClientService) List(ctx context.Context) ([]*domain.Client, error) {
	if s.repo == nil {
		return nil, ErrUnavailable
	}
	return s.repo.List(ctx)
}

// Get returns the client with id, or ErrNotFound.
func (s *ClientService) Get(ctx context.Context, id string) (*domain.Client, error) {
	if s.repo == nil {
		return nil, ErrUnavailable
	}
	if !s.repo.ValidID(id) {
		return nil, ErrNotFound
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// Update merges the keys present in payload into the client with id and stamps updated_at.
// A payload with no recognised keys writes nothing and returns the current record.
func (s *ClientService) Update(ctx context.Context, id string, payload []byte) (*domain.Client, error) {
	if s.repo == nil {
		return nil, ErrUnavailable
	}
	if !s.repo.ValidID(id) {
		return nil, ErrNotFound
	}
	patch, err := domain.DecodePatch(payload)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return s.Get(ctx, id)
	}
	fields := patch.Fields()
	fields["updated_at"] = s.now().UTC()
	matched, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, ErrNotFound
	}
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, telemetrydomain.EventClientUpdated, id, patch.FieldNames())
	return updated, nil
}

// Delete removes the client with id, or returns ErrNotFound.
func (s *ClientService) Delete(ctx context.Context, id string) error {
	if s.repo == nil {
		return ErrUnavailable
	}
	if !s.repo.ValidID(id) {
		return ErrNotFound
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.emit(ctx, telemetrydomain.EventClientDeleted, id, nil)
	return nil
}

func (s *ClientService) emit(ctx context.Context, eventType telemetrydomain.EventType, clientID string, changed []string) {
	if s.emitter == nil {
		return
	}
	requestID := telemetry.RequestIDFromContext(ctx)
	event := telemetrydomain.NewClientEvent(eventType, clientID, changed, requestID, s.now())
	telemetry.EmitAsync(s.emitter, ctx, event)
}
