package services

import (
	"context"
	"strings"

	"github.com/jobfinder/apiserver/types"
)

// JobRepository defines persistence operations for jobs.
type JobRepository interface {
	Create(ctx context.Context, job types.Job) (types.Job, error)
	GetByID(ctx context.Context, id string) (types.Job, error)
	// List returns jobs whose title or description contains keyword,
	// case-insensitively, newest first. An empty keyword matches all jobs.
	List(ctx context.Context, keyword string) ([]types.Job, error)
	ListByCreator(ctx context.Context, userID string) ([]types.Job, error)
	ListByIDs(ctx context.Context, ids []string) ([]types.Job, error)
	Update(ctx context.Context, job types.Job) (types.Job, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// JobInput carries job fields. On update, nil and empty fields are left
// unchanged.
type JobInput struct {
	Title        string
	Description  string
	Requirements []string
	Salary       *float64
	Location     []string
	JobType      string
	Experience   string
	Position     *int
	CompanyID    string
}

// JobService encapsulates job use-cases.
type JobService struct {
	jobs         JobRepository
	companies    CompanyRepository
	applications ApplicationRepository
}

func NewJobService(jobs JobRepository, companies CompanyRepository, applications ApplicationRepository) *JobService {
	return &JobService{jobs: jobs, companies: companies, applications: applications}
}

// Post creates a job for a company owned by userID.
func (s *JobService) Post(ctx context.Context, userID string, in JobInput) (types.JobView, error) {
	in = in.trimmed()
	if in.Title == "" || in.Description == "" || len(in.Requirements) == 0 || in.Salary == nil ||
		len(in.Location) == 0 || in.JobType == "" || in.Experience == "" || in.Position == nil || in.CompanyID == "" {
		return types.JobView{}, invalid("All fields are required")
	}
	if *in.Salary < 0 || *in.Position < 1 {
		return types.JobView{}, invalid("salary must not be negative and position must be at least 1")
	}

	company, err := s.ownedCompany(ctx, userID, in.CompanyID)
	if err != nil {
		return types.JobView{}, err
	}

	created, err := s.jobs.Create(ctx, types.Job{
		ID:           newID(),
		Title:        in.Title,
		Description:  in.Description,
		Requirements: in.Requirements,
		Salary:       *in.Salary,
		Location:     in.Location,
		JobType:      in.JobType,
		Experience:   in.Experience,
		Position:     *in.Position,
		CompanyID:    company.ID,
		CreatedBy:    userID,
	})
	if err != nil {
		return types.JobView{}, err
	}
	return types.JobView{Job: created, Company: &company}, nil
}

// List returns the jobs matching keyword with their companies.
func (s *JobService) List(ctx context.Context, keyword string) ([]types.JobView, error) {
	jobs, err := s.jobs.List(ctx, strings.TrimSpace(keyword))
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, newError(ErrNotFound, "No jobs found")
	}
	return s.withCompanies(ctx, jobs)
}

// Get returns a job with its company and applications.
func (s *JobService) Get(ctx context.Context, id string) (types.JobView, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return types.JobView{}, notFoundOr(err, "Job not found")
	}
	views, err := s.withCompanies(ctx, []types.Job{job})
	if err != nil {
		return types.JobView{}, err
	}
	view := views[0]

	applications, err := s.applications.ListByJob(ctx, job.ID)
	if err != nil {
		return types.JobView{}, err
	}
	view.Applications = make([]types.ApplicationView, 0, len(applications))
	for _, a := range applications {
		view.Applications = append(view.Applications, types.ApplicationView{Application: a})
	}
	return view, nil
}

// ListByCreator returns the jobs posted by userID.
func (s *JobService) ListByCreator(ctx context.Context, userID string) ([]types.JobView, error) {
	jobs, err := s.jobs.ListByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, newError(ErrNotFound, "No jobs found")
	}
	return s.withCompanies(ctx, jobs)
}

// Update changes a job posted by userID.
func (s *JobService) Update(ctx context.Context, userID, id string, in JobInput) (types.JobView, error) {
	job, err := s.owned(ctx, userID, id)
	if err != nil {
		return types.JobView{}, err
	}

	in = in.trimmed()
	if in.Title != "" {
		job.Title = in.Title
	}
	if in.Description != "" {
		job.Description = in.Description
	}
	if len(in.Requirements) > 0 {
		job.Requirements = in.Requirements
	}
	if in.Salary != nil {
		if *in.Salary < 0 {
			return types.JobView{}, invalid("salary must not be negative")
		}
		job.Salary = *in.Salary
	}
	if len(in.Location) > 0 {
		job.Location = in.Location
	}
	if in.JobType != "" {
		job.JobType = in.JobType
	}
	if in.Experience != "" {
		job.Experience = in.Experience
	}
	if in.Position != nil {
		if *in.Position < 1 {
			return types.JobView{}, invalid("position must be at least 1")
		}
		job.Position = *in.Position
	}
	if in.CompanyID != "" && in.CompanyID != job.CompanyID {
		company, err := s.ownedCompany(ctx, userID, in.CompanyID)
		if err != nil {
			return types.JobView{}, err
		}
		job.CompanyID = company.ID
	}

	updated, err := s.jobs.Update(ctx, job)
	if err != nil {
		return types.JobView{}, notFoundOr(err, "Job not found")
	}
	views, err := s.withCompanies(ctx, []types.Job{updated})
	if err != nil {
		return types.JobView{}, err
	}
	return views[0], nil
}

// Delete removes a job posted by userID together with its applications.
func (s *JobService) Delete(ctx context.Context, userID, id string) (types.Job, error) {
	job, err := s.owned(ctx, userID, id)
	if err != nil {
		return types.Job{}, err
	}
	if err := s.applications.DeleteByJob(ctx, job.ID); err != nil {
		return types.Job{}, err
	}
	if err := s.jobs.Delete(ctx, job.ID); err != nil {
		return types.Job{}, notFoundOr(err, "Job not found")
	}
	return job, nil
}

func (s *JobService) owned(ctx context.Context, userID, id string) (types.Job, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return types.Job{}, notFoundOr(err, "Job not found")
	}
	if job.CreatedBy != userID {
		return types.Job{}, newError(ErrForbidden, "You are not allowed to modify this job")
	}
	return job, nil
}

func (s *JobService) ownedCompany(ctx context.Context, userID, companyID string) (types.Company, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return types.Company{}, notFoundOr(err, "Company not found")
	}
	if company.UserID != userID {
		return types.Company{}, newError(ErrForbidden, "You can only post jobs for your own companies")
	}
	return company, nil
}

// withCompanies attaches each job's company. Jobs whose company no longer
// exists are returned without one.
func (s *JobService) withCompanies(ctx context.Context, jobs []types.Job) ([]types.JobView, error) {
	return populateJobs(ctx, s.companies, jobs)
}

func populateJobs(ctx context.Context, companies CompanyRepository, jobs []types.Job) ([]types.JobView, error) {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.CompanyID)
	}
	found, err := companies.ListByIDs(ctx, unique(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]types.Company, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	views := make([]types.JobView, 0, len(jobs))
	for _, j := range jobs {
		view := types.JobView{Job: j}
		if c, ok := byID[j.CompanyID]; ok {
			view.Company = &c
		}
		views = append(views, view)
	}
	return views, nil
}

func (in JobInput) trimmed() JobInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.JobType = strings.TrimSpace(in.JobType)
	in.Experience = strings.TrimSpace(in.Experience)
	in.CompanyID = strings.TrimSpace(in.CompanyID)
	in.Requirements = trimAll(in.Requirements)
	in.Location = trimAll(in.Location)
	return in
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
