package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jobfinder/apiserver/types"
	"github.com/lib/pq"
)

// JobRepository handles persistence for jobs.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `
		id, title, description, requirements, salary, location, job_type, experience,
		position, company_id, created_by, created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanJob(row rowScanner) (types.Job, error) {
	var job types.Job
	err := row.Scan(
		&job.ID,
		&job.Title,
		&job.Description,
		pq.Array(&job.Requirements),
		&job.Salary,
		pq.Array(&job.Location),
		&job.JobType,
		&job.Experience,
		&job.Position,
		&job.CompanyID,
		&job.CreatedBy,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if job.Requirements == nil {
		job.Requirements = []string{}
	}
	if job.Location == nil {
		job.Location = []string{}
	}
	return job, err
}

func (r *JobRepository) list(ctx context.Context, query string, args ...any) ([]types.Job, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]types.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (types.Job, error) {
	const query = `SELECT` + jobColumns + `
		FROM jobs
		WHERE id = $1`
	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Job{}, ErrNotFound
		}
		return types.Job{}, err
	}
	return job, nil
}

func (r *JobRepository) List(ctx context.Context, keyword string) ([]types.Job, error) {
	const query = `SELECT` + jobColumns + `
		FROM jobs
		WHERE $1 = '' OR title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, likeEscaper.Replace(keyword))
}

func (r *JobRepository) ListByCreator(ctx context.Context, userID string) ([]types.Job, error) {
	const query = `SELECT` + jobColumns + `
		FROM jobs
		WHERE created_by = $1
		ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, userID)
}

func (r *JobRepository) ListByIDs(ctx context.Context, ids []string) ([]types.Job, error) {
	if len(ids) == 0 {
		return []types.Job{}, nil
	}
	const query = `SELECT` + jobColumns + `
		FROM jobs
		WHERE id = ANY($1)`
	return r.list(ctx, query, pq.Array(ids))
}

func (r *JobRepository) Create(ctx context.Context, job types.Job) (types.Job, error) {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	const query = `
		INSERT INTO jobs (
			id, title, description, requirements, salary, location, job_type, experience,
			position, company_id, created_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.Title,
		job.Description,
		pq.Array(job.Requirements),
		job.Salary,
		pq.Array(job.Location),
		job.JobType,
		job.Experience,
		job.Position,
		job.CompanyID,
		job.CreatedBy,
		job.CreatedAt,
		job.UpdatedAt,
	); err != nil {
		return types.Job{}, mapWriteError(err)
	}
	return job, nil
}

func (r *JobRepository) Update(ctx context.Context, job types.Job) (types.Job, error) {
	job.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE jobs
		SET title = $1,
			description = $2,
			requirements = $3,
			salary = $4,
			location = $5,
			job_type = $6,
			experience = $7,
			position = $8,
			company_id = $9,
			updated_at = $10
		WHERE id = $11`
	result, err := r.db.ExecContext(
		ctx,
		query,
		job.Title,
		job.Description,
		pq.Array(job.Requirements),
		job.Salary,
		pq.Array(job.Location),
		job.JobType,
		job.Experience,
		job.Position,
		job.CompanyID,
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return types.Job{}, mapWriteError(err)
	}
	if err := expectAffected(result); err != nil {
		return types.Job{}, err
	}
	return job, nil
}

func (r *JobRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM jobs WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *JobRepository) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(1) FROM jobs`
	var total int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
