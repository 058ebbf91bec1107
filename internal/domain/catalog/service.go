package catalog

import (
	"context"
	"fmt"
)

type Service struct {
	diagnoses  DiagnosisRepository
	procedures ProcedureRepository
}

func NewService(diagnoses DiagnosisRepository, procedures ProcedureRepository) *Service {
	return &Service{diagnoses: diagnoses, procedures: procedures}
}

// -- Diagnosis --

func (s *Service) CreateDiagnosis(ctx context.Context, d *Diagnosis) error {
	if d.Code == "" {
		return fmt.Errorf("code is required")
	}
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.diagnoses.Create(ctx, d)
}

func (s *Service) GetDiagnosis(ctx context.Context, code string) (*Diagnosis, error) {
	return s.diagnoses.GetByCode(ctx, code)
}

func (s *Service) ListDiagnoses(ctx context.Context, limit, offset int) ([]*Diagnosis, int, error) {
	return s.diagnoses.List(ctx, limit, offset)
}

// -- Procedure --

func (s *Service) CreateProcedure(ctx context.Context, p *Procedure) error {
	if p.Code == "" {
		return fmt.Errorf("code is required")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.AverageCost <= 0 {
		return fmt.Errorf("average_cost must be greater than 0")
	}
	return s.procedures.Create(ctx, p)
}

func (s *Service) GetProcedure(ctx context.Context, code string) (*Procedure, error) {
	return s.procedures.GetByCode(ctx, code)
}

func (s *Service) ListProcedures(ctx context.Context, limit, offset int) ([]*Procedure, int, error) {
	return s.procedures.List(ctx, limit, offset)
}
