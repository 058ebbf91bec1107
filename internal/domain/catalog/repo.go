package catalog

import (
	"context"
	"errors"
)

// ErrDiagnosisNotFound is returned when no diagnosis exists for the code.
var ErrDiagnosisNotFound = errors.New("diagnosis not found")

// ErrProcedureNotFound is returned when no procedure exists for the code.
var ErrProcedureNotFound = errors.New("procedure not found")

type DiagnosisRepository interface {
	Create(ctx context.Context, d *Diagnosis) error
	GetByCode(ctx context.Context, code string) (*Diagnosis, error)
	List(ctx context.Context, limit, offset int) ([]*Diagnosis, int, error)
}

type ProcedureRepository interface {
	Create(ctx context.Context, p *Procedure) error
	GetByCode(ctx context.Context, code string) (*Procedure, error)
	List(ctx context.Context, limit, offset int) ([]*Procedure, int, error)
}
