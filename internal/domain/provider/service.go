package provider

import (
	"context"
	"fmt"
)

type Service struct {
	providers Repository
}

func NewService(providers Repository) *Service {
	return &Service{providers: providers}
}

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.providers.Create(ctx, p)
}

func (s *Service) GetProvider(ctx context.Context, id string) (*Provider, error) {
	return s.providers.GetByID(ctx, id)
}

func (s *Service) UpdateProvider(ctx context.Context, p *Provider) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.providers.Update(ctx, p)
}

func (s *Service) ListProviders(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	return s.providers.List(ctx, limit, offset)
}
