package repository

import (
	"context"

	"crm-backend/internal/client/domain"
)

// Repository defines persistence for clients.
type Repository interface {
	// ValidID reports whether id is well formed for the backing store.
	ValidID(id string) bool
	// Create persists c and returns the storage-assigned identifier. c.ID is ignored.
	Create(ctx context.Context, c *domain.Client) (string, error)
	// List returns every client; never nil.
	List(ctx context.Context) ([]*domain.Client, error)
	// ListByEmail returns the clients whose email equals email.
	ListByEmail(ctx context.Context, email string) ([]*domain.Client, error)
	// GetByID returns the client for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	// Update sets fields on the client with id. Returns false if no client matched.
	Update(ctx context.Context, id string, fields map[string]any) (bool, error)
	// Delete removes the client with id. Returns false if no client matched.
	Delete(ctx context.Context, id string) (bool, error)
}
