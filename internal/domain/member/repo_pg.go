package member

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const memberCols = `id, name, email, phone_number, status,
	benefit_limit, used_benefit, created_at, updated_at`

func (r *repoPG) scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.PhoneNumber, &m.Status,
		&m.BenefitLimit, &m.UsedBenefit, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Member) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO members (id, name, email, phone_number, status, benefit_limit, used_benefit)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		m.ID, m.Name, m.Email, m.PhoneNumber, m.Status, m.BenefitLimit, m.UsedBenefit).
		Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Member, error) {
	return r.scanMember(r.conn(ctx).QueryRow(ctx,
		`SELECT `+memberCols+` FROM members WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, m *Member) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE members SET name=$2, email=$3, phone_number=$4, status=$5, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.Email, m.PhoneNumber, m.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Member, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+memberCols+` FROM members ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Member
	for rows.Next() {
		m, err := r.scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

// IncrementUsedBenefit performs the conditional increment in a single
// statement so the benefit-limit invariant is enforced by the database
// regardless of how many adjudications race on the same member.
func (r *repoPG) IncrementUsedBenefit(ctx context.Context, id string, amount float64) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE members
		SET used_benefit = used_benefit + $2, updated_at = NOW()
		WHERE id = $1 AND used_benefit + $2 <= benefit_limit`,
		id, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing member from a guard refusal.
		var exists bool
		if err := r.conn(ctx).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrBenefitExceeded
	}
	return nil
}
