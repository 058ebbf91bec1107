package member

import (
	"context"
	"fmt"
)

type Service struct {
	members Repository
}

func NewService(members Repository) *Service {
	return &Service{members: members}
}

func (s *Service) CreateMember(ctx context.Context, m *Member) error {
	if m.ID == "" {
		return fmt.Errorf("id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.Email == "" {
		return fmt.Errorf("email is required")
	}
	if m.Status == "" {
		m.Status = StatusActive
	}
	if !m.Status.Valid() {
		return fmt.Errorf("invalid member status: %s", m.Status)
	}
	if m.BenefitLimit < 0 {
		return fmt.Errorf("benefit_limit must not be negative")
	}
	if m.UsedBenefit < 0 {
		return fmt.Errorf("used_benefit must not be negative")
	}
	if m.UsedBenefit > m.BenefitLimit {
		return fmt.Errorf("used_benefit must not exceed benefit_limit")
	}
	return s.members.Create(ctx, m)
}

func (s *Service) GetMember(ctx context.Context, id string) (*Member, error) {
	return s.members.GetByID(ctx, id)
}

func (s *Service) UpdateMember(ctx context.Context, m *Member) error {
	if m.Status != "" && !m.Status.Valid() {
		return fmt.Errorf("invalid member status: %s", m.Status)
	}
	return s.members.Update(ctx, m)
}

func (s *Service) ListMembers(ctx context.Context, limit, offset int) ([]*Member, int, error) {
	return s.members.List(ctx, limit, offset)
}
