package claims

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no claim exists for the given id.
var ErrNotFound = errors.New("claim not found")

// ListFilter narrows a claim listing. Zero values mean "no filter".
type ListFilter struct {
	MemberID   string
	ProviderID string
	Status     Status
}

type Repository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Claim, int, error)
}
