package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jobfinder/apiserver/types"
	"github.com/lib/pq"
)

// CompanyRepository handles persistence for companies.
type CompanyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

const companyColumns = `
		id, company_name, description, website, location, logo, user_id, created_at, updated_at`

func scanCompany(row rowScanner) (types.Company, error) {
	var company types.Company
	err := row.Scan(
		&company.ID,
		&company.CompanyName,
		&company.Description,
		&company.Website,
		&company.Location,
		&company.Logo,
		&company.UserID,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	return company, err
}

func (r *CompanyRepository) list(ctx context.Context, query string, args ...any) ([]types.Company, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]types.Company, 0)
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *CompanyRepository) GetByID(ctx context.Context, id string) (types.Company, error) {
	const query = `SELECT` + companyColumns + `
		FROM companies
		WHERE id = $1`
	company, err := scanCompany(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Company{}, ErrNotFound
		}
		return types.Company{}, err
	}
	return company, nil
}

func (r *CompanyRepository) ListByOwner(ctx context.Context, userID string) ([]types.Company, error) {
	const query = `SELECT` + companyColumns + `
		FROM companies
		WHERE user_id = $1
		ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *CompanyRepository) ListByIDs(ctx context.Context, ids []string) ([]types.Company, error) {
	if len(ids) == 0 {
		return []types.Company{}, nil
	}
	const query = `SELECT` + companyColumns + `
		FROM companies
		WHERE id = ANY($1)`
	return r.list(ctx, query, pq.Array(ids))
}

func (r *CompanyRepository) Create(ctx context.Context, company types.Company) (types.Company, error) {
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now

	const query = `
		INSERT INTO companies (id, company_name, description, website, location, logo, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		company.ID,
		company.CompanyName,
		company.Description,
		company.Website,
		company.Location,
		company.Logo,
		company.UserID,
		company.CreatedAt,
		company.UpdatedAt,
	); err != nil {
		return types.Company{}, mapWriteError(err)
	}
	return company, nil
}

func (r *CompanyRepository) Update(ctx context.Context, company types.Company) (types.Company, error) {
	company.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE companies
		SET company_name = $1,
			description = $2,
			website = $3,
			location = $4,
			logo = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		company.CompanyName,
		company.Description,
		company.Website,
		company.Location,
		company.Logo,
		company.UpdatedAt,
		company.ID,
	)
	if err != nil {
		return types.Company{}, mapWriteError(err)
	}
	if err := expectAffected(result); err != nil {
		return types.Company{}, err
	}
	return company, nil
}

func (r *CompanyRepository) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(1) FROM companies`
	var total int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
