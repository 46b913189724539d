package repository

import (
	"context"

	"crm-backend/internal/client/domain"
	"crm-backend/internal/db"
)

// Collection is the document collection holding client records.
const Collection = "client"

// GatewayRepository stores clients through a db.Gateway.
type GatewayRepository struct {
	gw db.Gateway
}

// NewGatewayRepository returns a client repository that uses gw for persistence.
func NewGatewayRepository(gw db.Gateway) *GatewayRepository {
	return &GatewayRepository{gw: gw}
}

func (r *GatewayRepository) ValidID(id string) bool {
	return r.gw.ValidID(id)
}

func (r *GatewayRepository) Create(ctx context.Context, c *domain.Client) (string, error) {
	doc := *c
	doc.ID = ""
	doc.Normalize()
	return r.gw.Insert(ctx, Collection, &doc)
}

func (r *GatewayRepository) List(ctx context.Context) ([]*domain.Client, error) {
	return r.find(ctx, nil)
}

func (r *GatewayRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Client, error) {
	return r.find(ctx, map[string]any{"email": email})
}

func (r *GatewayRepository) find(ctx context.Context, filter map[string]any) ([]*domain.Client, error) {
	var docs []*domain.Client
	if err := r.gw.FindAll(ctx, Collection, filter, &docs); err != nil {
		return nil, err
	}
	out := make([]*domain.Client, 0, len(docs))
	for _, c := range docs {
		c.Normalize()
		out = append(out, c)
	}
	return out, nil
}

// GetByID returns the client for id, or nil if not found.
// It returns an error only for storage failures, not for missing documents.
func (r *GatewayRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	var c domain.Client
	found, err := r.gw.FindOne(ctx, Collection, id, &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	c.Normalize()
	return &c, nil
}

func (r *GatewayRepository) Update(ctx context.Context, id string, fields map[string]any) (bool, error) {
	matched, err := r.gw.UpdateOne(ctx, Collection, id, fields)
	if err != nil {
		return false, err
	}
	return matched > 0, nil
}

func (r *GatewayRepository) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := r.gw.DeleteOne(ctx, Collection, id)
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}
