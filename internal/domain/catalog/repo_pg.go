package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ginja/claims-api/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Diagnosis Repository ===========

type diagnosisRepoPG struct{ pool *pgxpool.Pool }

func NewDiagnosisRepoPG(pool *pgxpool.Pool) DiagnosisRepository {
	return &diagnosisRepoPG{pool: pool}
}

func (r *diagnosisRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const diagnosisCols = `code, name, description, created_at, updated_at`

func (r *diagnosisRepoPG) scanDiagnosis(row pgx.Row) (*Diagnosis, error) {
	var d Diagnosis
	err := row.Scan(&d.Code, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDiagnosisNotFound
	}
	return &d, err
}

func (r *diagnosisRepoPG) Create(ctx context.Context, d *Diagnosis) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO diagnoses (code, name, description)
		VALUES ($1,$2,$3)
		RETURNING created_at, updated_at`,
		d.Code, d.Name, d.Description).
		Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *diagnosisRepoPG) GetByCode(ctx context.Context, code string) (*Diagnosis, error) {
	return r.scanDiagnosis(r.conn(ctx).QueryRow(ctx,
		`SELECT `+diagnosisCols+` FROM diagnoses WHERE code = $1`, code))
}

func (r *diagnosisRepoPG) List(ctx context.Context, limit, offset int) ([]*Diagnosis, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM diagnoses`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+diagnosisCols+` FROM diagnoses ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Diagnosis
	for rows.Next() {
		d, err := r.scanDiagnosis(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// =========== Procedure Repository ===========

type procedureRepoPG struct{ pool *pgxpool.Pool }

func NewProcedureRepoPG(pool *pgxpool.Pool) ProcedureRepository {
	return &procedureRepoPG{pool: pool}
}

func (r *procedureRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const procedureCols = `code, name, description, average_cost, created_at, updated_at`

func (r *procedureRepoPG) scanProcedure(row pgx.Row) (*Procedure, error) {
	var p Procedure
	err := row.Scan(&p.Code, &p.Name, &p.Description, &p.AverageCost, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProcedureNotFound
	}
	return &p, err
}

func (r *procedureRepoPG) Create(ctx context.Context, p *Procedure) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO procedures (code, name, description, average_cost)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		p.Code, p.Name, p.Description, p.AverageCost).
		Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *procedureRepoPG) GetByCode(ctx context.Context, code string) (*Procedure, error) {
	return r.scanProcedure(r.conn(ctx).QueryRow(ctx,
		`SELECT `+procedureCols+` FROM procedures WHERE code = $1`, code))
}

func (r *procedureRepoPG) List(ctx context.Context, limit, offset int) ([]*Procedure, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM procedures`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+procedureCols+` FROM procedures ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Procedure
	for rows.Next() {
		p, err := r.scanProcedure(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
