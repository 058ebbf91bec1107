package provider

import (
	"context"
	"errors"
	"testing"
)

type mockRepo struct {
	providers map[string]*Provider
	created   int
}

func newMockRepo(providers ...*Provider) *mockRepo {
	r := &mockRepo{providers: make(map[string]*Provider)}
	for _, p := range providers {
		r.providers[p.ID] = p
	}
	return r
}

func (r *mockRepo) Create(ctx context.Context, p *Provider) error {
	r.created++
	r.providers[p.ID] = p
	return nil
}

func (r *mockRepo) GetByID(ctx context.Context, id string) (*Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (r *mockRepo) Update(ctx context.Context, p *Provider) error {
	if _, ok := r.providers[p.ID]; !ok {
		return ErrNotFound
	}
	r.providers[p.ID] = p
	return nil
}

func (r *mockRepo) List(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	var items []*Provider
	for _, p := range r.providers {
		items = append(items, p)
	}
	return items, len(items), nil
}

func TestCreateProvider(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &Provider{ID: "H456", Name: "City General Hospital", IsActive: true}
	if err := svc.CreateProvider(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.created != 1 {
		t.Errorf("expected 1 create, got %d", repo.created)
	}
}

func TestCreateProvider_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	if err := svc.CreateProvider(context.Background(), &Provider{Name: "No ID"}); err == nil {
		t.Error("expected error for missing id")
	}
	if err := svc.CreateProvider(context.Background(), &Provider{ID: "H456"}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestGetProvider_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.GetProvider(context.Background(), "H999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProvider_RequiresName(t *testing.T) {
	repo := newMockRepo(&Provider{ID: "H456", Name: "City General Hospital"})
	svc := NewService(repo)

	if err := svc.UpdateProvider(context.Background(), &Provider{ID: "H456"}); err == nil {
		t.Error("expected error for missing name")
	}
}
