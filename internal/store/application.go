package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jobfinder/apiserver/types"
)

// ApplicationRepository handles persistence for job applications.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `
		id, job_id, applicant_id, status, created_at, updated_at`

func scanApplication(row rowScanner) (types.Application, error) {
	var application types.Application
	err := row.Scan(
		&application.ID,
		&application.JobID,
		&application.ApplicantID,
		&application.Status,
		&application.CreatedAt,
		&application.UpdatedAt,
	)
	return application, err
}

func (r *ApplicationRepository) list(ctx context.Context, query string, args ...any) ([]types.Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applications := make([]types.Application, 0)
	for rows.Next() {
		application, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		applications = append(applications, application)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return applications, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (types.Application, error) {
	const query = `SELECT` + applicationColumns + `
		FROM applications
		WHERE id = $1`
	application, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Application{}, ErrNotFound
		}
		return types.Application{}, err
	}
	return application, nil
}

func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID string) ([]types.Application, error) {
	const query = `SELECT` + applicationColumns + `
		FROM applications
		WHERE applicant_id = $1
		ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, applicantID)
}

func (r *ApplicationRepository) ListByJob(ctx context.Context, jobID string) ([]types.Application, error) {
	const query = `SELECT` + applicationColumns + `
		FROM applications
		WHERE job_id = $1
		ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, jobID)
}

func (r *ApplicationRepository) Create(ctx context.Context, application types.Application) (types.Application, error) {
	now := time.Now().UTC()
	application.CreatedAt = now
	application.UpdatedAt = now

	const query = `
		INSERT INTO applications (id, job_id, applicant_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		application.ID,
		application.JobID,
		application.ApplicantID,
		application.Status,
		application.CreatedAt,
		application.UpdatedAt,
	); err != nil {
		return types.Application{}, mapWriteError(err)
	}
	return application, nil
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id, status string) (types.Application, error) {
	const query = `
		UPDATE applications
		SET status = $1,
			updated_at = $2
		WHERE id = $3
		RETURNING` + applicationColumns
	application, err := scanApplication(r.db.QueryRowContext(ctx, query, status, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Application{}, ErrNotFound
		}
		return types.Application{}, err
	}
	return application, nil
}

func (r *ApplicationRepository) DeleteByJob(ctx context.Context, jobID string) error {
	const query = `DELETE FROM applications WHERE job_id = $1`
	_, err := r.db.ExecContext(ctx, query, jobID)
	return err
}

func (r *ApplicationRepository) CountByApplicant(ctx context.Context, applicantID, status string) (int64, error) {
	const query = `
		SELECT COUNT(1)
		FROM applications
		WHERE applicant_id = $1 AND ($2 = '' OR status = $2)`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, applicantID, status).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ApplicationRepository) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(1) FROM applications`
	var total int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ApplicationRepository) MonthlyCounts(ctx context.Context, applicantID string, since time.Time) ([]types.MonthlyCount, error) {
	const query = `
		SELECT EXTRACT(YEAR FROM created_at AT TIME ZONE 'UTC')::int AS year,
		       EXTRACT(MONTH FROM created_at AT TIME ZONE 'UTC')::int AS month,
		       COUNT(1)
		FROM applications
		WHERE applicant_id = $1 AND created_at >= $2
		GROUP BY year, month
		ORDER BY year, month`
	rows, err := r.db.QueryContext(ctx, query, applicantID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]types.MonthlyCount, 0, 6)
	for rows.Next() {
		var c types.MonthlyCount
		if err := rows.Scan(&c.Year, &c.Month, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
