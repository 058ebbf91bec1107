package provider

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no provider exists for the given id.
var ErrNotFound = errors.New("provider not found")

type Repository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id string) (*Provider, error)
	Update(ctx context.Context, p *Provider) error
	List(ctx context.Context, limit, offset int) ([]*Provider, int, error)
}
