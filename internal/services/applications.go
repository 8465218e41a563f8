package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/types"
)

// ApplicationRepository defines persistence operations for applications.
type ApplicationRepository interface {
	// Create fails with store.ErrConflict when the applicant already applied
	// to the job.
	Create(ctx context.Context, application types.Application) (types.Application, error)
	GetByID(ctx context.Context, id string) (types.Application, error)
	ListByApplicant(ctx context.Context, applicantID string) ([]types.Application, error)
	ListByJob(ctx context.Context, jobID string) ([]types.Application, error)
	UpdateStatus(ctx context.Context, id, status string) (types.Application, error)
	DeleteByJob(ctx context.Context, jobID string) error
	// CountByApplicant counts applicantID's applications, restricted to
	// status unless it is empty.
	CountByApplicant(ctx context.Context, applicantID, status string) (int64, error)
	Count(ctx context.Context) (int64, error)
	// MonthlyCounts groups applicantID's applications created at or after
	// since by calendar month, oldest first.
	MonthlyCounts(ctx context.Context, applicantID string, since time.Time) ([]types.MonthlyCount, error)
}

// ApplicationService encapsulates job application use-cases.
type ApplicationService struct {
	applications ApplicationRepository
	jobs         JobRepository
	companies    CompanyRepository
	users        UserRepository
	events       *Notifier
}

func NewApplicationService(applications ApplicationRepository, jobs JobRepository, companies CompanyRepository, users UserRepository, events *Notifier) *ApplicationService {
	return &ApplicationService{
		applications: applications,
		jobs:         jobs,
		companies:    companies,
		users:        users,
		events:       events,
	}
}

// Apply records a pending application of applicantID to jobID.
func (s *ApplicationService) Apply(ctx context.Context, applicantID, jobID string) (types.Application, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return types.Application{}, invalid("jobId is required")
	}
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		return types.Application{}, notFoundOr(err, "Job not found")
	}

	created, err := s.applications.Create(ctx, types.Application{
		ID:          newID(),
		JobID:       jobID,
		ApplicantID: applicantID,
		Status:      types.StatusPending,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Application{}, newError(ErrConflict, "You have already applied for this job")
		}
		return types.Application{}, err
	}

	s.events.Publish(ctx, Event{
		Type:          EventApplicationCreated,
		UserID:        applicantID,
		JobID:         jobID,
		ApplicationID: created.ID,
		Status:        created.Status,
	})
	return created, nil
}

// Applied returns applicantID's applications, newest first, with their
// jobs and companies.
func (s *ApplicationService) Applied(ctx context.Context, applicantID string) ([]types.ApplicationView, error) {
	applications, err := s.applications.ListByApplicant(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if len(applications) == 0 {
		return nil, newError(ErrNotFound, "You have not applied to any jobs yet")
	}

	ids := make([]string, 0, len(applications))
	for _, a := range applications {
		ids = append(ids, a.JobID)
	}
	jobs, err := s.jobs.ListByIDs(ctx, unique(ids))
	if err != nil {
		return nil, err
	}
	views, err := populateJobs(ctx, s.companies, jobs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]types.JobView, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}

	out := make([]types.ApplicationView, 0, len(applications))
	for _, a := range applications {
		view := types.ApplicationView{Application: a}
		if j, ok := byID[a.JobID]; ok {
			view.Job = &j
		}
		out = append(out, view)
	}
	return out, nil
}

// Applicants returns jobID with its applications and applicants. Only the
// job's creator may list them.
func (s *ApplicationService) Applicants(ctx context.Context, userID, jobID string) (types.JobView, error) {
	job, err := s.creatorJob(ctx, userID, jobID)
	if err != nil {
		return types.JobView{}, err
	}

	applications, err := s.applications.ListByJob(ctx, job.ID)
	if err != nil {
		return types.JobView{}, err
	}
	if len(applications) == 0 {
		return types.JobView{}, newError(ErrNotFound, "No one has applied for this job")
	}

	ids := make([]string, 0, len(applications))
	for _, a := range applications {
		ids = append(ids, a.ApplicantID)
	}
	users, err := s.users.ListByIDs(ctx, unique(ids))
	if err != nil {
		return types.JobView{}, err
	}
	byID := make(map[string]types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	views, err := populateJobs(ctx, s.companies, []types.Job{job})
	if err != nil {
		return types.JobView{}, err
	}
	view := views[0]
	view.Applications = make([]types.ApplicationView, 0, len(applications))
	for _, a := range applications {
		av := types.ApplicationView{Application: a}
		if u, ok := byID[a.ApplicantID]; ok {
			av.Applicant = &u
		}
		view.Applications = append(view.Applications, av)
	}
	return view, nil
}

// UpdateStatus sets the status of application id. Only the creator of the
// application's job may change it.
func (s *ApplicationService) UpdateStatus(ctx context.Context, userID, id, status string) (types.Application, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return types.Application{}, invalid("Status is required")
	}
	if !types.ValidApplicationStatus(status) {
		return types.Application{}, invalid("status must be one of: pending, interview, accepted, rejected, selected")
	}

	application, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return types.Application{}, notFoundOr(err, "Application not found")
	}
	if _, err := s.creatorJob(ctx, userID, application.JobID); err != nil {
		return types.Application{}, err
	}

	updated, err := s.applications.UpdateStatus(ctx, application.ID, status)
	if err != nil {
		return types.Application{}, notFoundOr(err, "Application not found")
	}

	s.events.Publish(ctx, Event{
		Type:          EventApplicationStatusUpdated,
		UserID:        updated.ApplicantID,
		JobID:         updated.JobID,
		ApplicationID: updated.ID,
		Status:        updated.Status,
	})
	return updated, nil
}

func (s *ApplicationService) creatorJob(ctx context.Context, userID, jobID string) (types.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return types.Job{}, notFoundOr(err, "Job not found")
	}
	if job.CreatedBy != userID {
		return types.Job{}, newError(ErrForbidden, "You are not allowed to review applications for this job")
	}
	return job, nil
}
