package services_test

import (
	"context"
	"testing"

	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "owner@example.com", types.RoleRecruiter)
	other := f.register(t, "other@example.com", types.RoleRecruiter)

	empty, err := f.companies.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	company := f.company(t, owner, "Acme")
	assert.Equal(t, owner.ID, company.UserID)

	_, err = f.companies.Register(ctx, other.ID, services.CompanyInput{CompanyName: "Acme"})
	assertKind(t, err, services.ErrConflict, "Company with Acme name already exists! So try with another name")

	_, err = f.companies.Register(ctx, owner.ID, services.CompanyInput{CompanyName: "  "})
	assertKind(t, err, services.ErrValidation, "companyName is required")

	_, err = f.companies.Update(ctx, other.ID, company.ID, services.CompanyInput{Description: "hijack"})
	assertKind(t, err, services.ErrForbidden, "")

	updated, err := f.companies.Update(ctx, owner.ID, company.ID, services.CompanyInput{
		Description: "Rockets",
		Website:     "https://acme.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.CompanyName)
	assert.Equal(t, "Rockets", updated.Description)
	assert.Equal(t, "https://acme.test", updated.Website)

	_, err = f.companies.Get(ctx, "missing")
	assertKind(t, err, services.ErrNotFound, "Company not found")
}

func TestPostJobRequiresOwnedCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.register(t, "recruiter@example.com", types.RoleRecruiter)
	other := f.register(t, "rival@example.com", types.RoleRecruiter)
	company := f.company(t, owner, "Initech")

	_, err := f.jobs.Post(ctx, owner.ID, services.JobInput{Title: "Incomplete"})
	assertKind(t, err, services.ErrValidation, "All fields are required")

	salary, position := 1000.0, 1
	input := services.JobInput{
		Title:        "Engineer",
		Description:  "Writes code",
		Requirements: []string{"Go"},
		Salary:       &salary,
		Location:     []string{"Remote"},
		JobType:      "Full-time",
		Experience:   "1 year",
		Position:     &position,
		CompanyID:    company.ID,
	}
	_, err = f.jobs.Post(ctx, other.ID, input)
	assertKind(t, err, services.ErrForbidden, "")

	input.CompanyID = "missing"
	_, err = f.jobs.Post(ctx, owner.ID, input)
	assertKind(t, err, services.ErrNotFound, "Company not found")

	job := f.job(t, owner, company, "Platform Engineer")
	require.NotNil(t, job.Company)
	assert.Equal(t, company.ID, job.Company.ID)
	assert.Equal(t, owner.ID, job.CreatedBy)
}

func TestJobSearchAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.jobs.List(ctx, "")
	assertKind(t, err, services.ErrNotFound, "No jobs found")

	owner := f.register(t, "poster@example.com", types.RoleRecruiter)
	other := f.register(t, "stranger@example.com", types.RoleRecruiter)
	company := f.company(t, owner, "Globex")
	first := f.job(t, owner, company, "Go Developer")
	second := f.job(t, owner, company, "Data Analyst")

	all, err := f.jobs.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")
	assert.Equal(t, "Globex", all[0].Company.CompanyName)

	matched, err := f.jobs.List(ctx, "go DEV")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, first.ID, matched[0].ID)

	_, err = f.jobs.ListByCreator(ctx, other.ID)
	assertKind(t, err, services.ErrNotFound, "No jobs found")

	title := "Senior Go Developer"
	_, err = f.jobs.Update(ctx, other.ID, first.ID, services.JobInput{Title: title})
	assertKind(t, err, services.ErrForbidden, "")

	updated, err := f.jobs.Update(ctx, owner.ID, first.ID, services.JobInput{Title: title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, first.Salary, updated.Salary)
}

func TestApplicationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recruiter := f.register(t, "hr@example.com", types.RoleRecruiter)
	student := f.register(t, "student@example.com", types.RoleStudent)
	company := f.company(t, recruiter, "Hooli")
	job := f.job(t, recruiter, company, "Intern")

	_, err := f.applications.Applied(ctx, student.ID)
	assertKind(t, err, services.ErrNotFound, "You have not applied to any jobs yet")

	_, err = f.applications.Applicants(ctx, recruiter.ID, job.ID)
	assertKind(t, err, services.ErrNotFound, "No one has applied for this job")

	_, err = f.applications.Apply(ctx, student.ID, "missing")
	assertKind(t, err, services.ErrNotFound, "Job not found")

	application, err := f.applications.Apply(ctx, student.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, application.Status)

	_, err = f.applications.Apply(ctx, student.ID, job.ID)
	assertKind(t, err, services.ErrConflict, "You have already applied for this job")

	applied, err := f.applications.Applied(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	require.NotNil(t, applied[0].Job)
	assert.Equal(t, "Hooli", applied[0].Job.Company.CompanyName)

	applicants, err := f.applications.Applicants(ctx, recruiter.ID, job.ID)
	require.NoError(t, err)
	require.Len(t, applicants.Applications, 1)
	require.NotNil(t, applicants.Applications[0].Applicant)
	assert.Equal(t, student.ID, applicants.Applications[0].Applicant.ID)

	_, err = f.applications.Applicants(ctx, student.ID, job.ID)
	assertKind(t, err, services.ErrForbidden, "")

	_, err = f.applications.UpdateStatus(ctx, recruiter.ID, application.ID, "hired")
	assertKind(t, err, services.ErrValidation, "")

	_, err = f.applications.UpdateStatus(ctx, student.ID, application.ID, "accepted")
	assertKind(t, err, services.ErrForbidden, "")

	updated, err := f.applications.UpdateStatus(ctx, recruiter.ID, application.ID, " Interview ")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInterview, updated.Status)

	viewed, err := f.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, viewed.Applications, 1)
	assert.Equal(t, types.StatusInterview, viewed.Applications[0].Status)

	assert.Equal(t, []string{
		services.EventUserRegistered,
		services.EventUserRegistered,
		services.EventApplicationCreated,
		services.EventApplicationStatusUpdated,
	}, f.published.types())
}

func TestDeleteJobRemovesApplications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recruiter := f.register(t, "del@example.com", types.RoleRecruiter)
	student := f.register(t, "applicant@example.com", types.RoleStudent)
	company := f.company(t, recruiter, "Umbrella")
	job := f.job(t, recruiter, company, "Researcher")

	_, err := f.applications.Apply(ctx, student.ID, job.ID)
	require.NoError(t, err)

	_, err = f.jobs.Delete(ctx, student.ID, job.ID)
	assertKind(t, err, services.ErrForbidden, "")

	deleted, err := f.jobs.Delete(ctx, recruiter.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, deleted.ID)

	_, err = f.jobs.Get(ctx, job.ID)
	assertKind(t, err, services.ErrNotFound, "Job not found")

	count, err := f.store.Applications().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
