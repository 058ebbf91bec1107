package member

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no member exists for the given id.
var ErrNotFound = errors.New("member not found")

// ErrBenefitExceeded is returned when an increment would push used_benefit
// past benefit_limit. It signals a lost race to the caller, which re-reads
// the balance and re-adjudicates.
var ErrBenefitExceeded = errors.New("benefit limit exceeded")

type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id string) (*Member, error)
	Update(ctx context.Context, m *Member) error
	List(ctx context.Context, limit, offset int) ([]*Member, int, error)
	// IncrementUsedBenefit atomically adds amount to used_benefit, refusing
	// the update when used_benefit + amount would exceed benefit_limit.
	IncrementUsedBenefit(ctx context.Context, id string, amount float64) error
}
