package companies

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turyasin/Proposal-App-Live/internal/platform/httpx"
)

var ErrNotFound = fmt.Errorf("company: %w", httpx.ErrNotFound)

type Repository interface {
	Get(ctx context.Context, id int64) (*Company, error)
	ListAll(ctx context.Context) ([]Company, error)
	Create(ctx context.Context, company Company) (int64, error)
	Update(ctx context.Context, id int64, company Company) error
	Delete(ctx context.Context, id int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Company, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, contact_person, email, created_at, updated_at
		FROM companies
		WHERE id = $1
	`, id)

	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) ListAll(ctx context.Context) ([]Company, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, contact_person, email, created_at, updated_at
		FROM companies
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *c)
	}
	return companies, rows.Err()
}

func (r *repository) Create(ctx context.Context, company Company) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO companies (name, contact_person, email, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`, company.Name, company.ContactPerson, company.Email).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, company Company) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE companies
		SET name = $1, contact_person = $2, email = $3, updated_at = NOW()
		WHERE id = $4
	`, company.Name, company.ContactPerson, company.Email, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	var contactPerson, email pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	if err := row.Scan(&c.ID, &c.Name, &contactPerson, &email, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if contactPerson.Valid {
		c.ContactPerson = &contactPerson.String
	}
	if email.Valid {
		c.Email = &email.String
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return &c, nil
}
