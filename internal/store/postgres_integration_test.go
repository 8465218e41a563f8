//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jobfinder/apiserver/internal/db"
	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/types"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var conn *sql.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("jobfinder_test"),
		postgres.WithUsername("jobfinder"),
		postgres.WithPassword("jobfinder"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		os.Exit(1)
	}

	code, err := run(ctx, m, container)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		code = 1
	}
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func run(ctx context.Context, m *testing.M, container *postgres.PostgresContainer) (int, error) {
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return 0, err
	}
	if err := db.MigrateUp(dsn); err != nil {
		return 0, err
	}
	conn, err = db.OpenURL(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return m.Run(), nil
}

func newID() string {
	return ulid.Make().String()
}

func createUser(t *testing.T, repo *store.UserRepository, email, phone string) types.User {
	t.Helper()
	user, err := repo.Create(context.Background(), types.User{
		ID:           newID(),
		FullName:     "Test User",
		Email:        email,
		PhoneNumber:  phone,
		Role:         types.RoleRecruiter,
		PasswordHash: "hash",
		Profile:      types.Profile{Skills: []string{"Go"}},
	})
	require.NoError(t, err)
	return user
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := store.NewUserRepository(conn)
	suffix := newID()

	user := createUser(t, repo, "user-"+suffix+"@example.com", "+1-"+suffix)

	_, err := repo.Create(ctx, types.User{
		ID:           newID(),
		FullName:     "Duplicate",
		Email:        "USER-" + suffix + "@example.com",
		Role:         types.RoleStudent,
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	byPhone, err := repo.GetByIdentifier(ctx, "+1-"+suffix)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byPhone.ID)
	assert.Equal(t, []string{"Go"}, byPhone.Profile.Skills)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	t.Run("refresh token swap", func(t *testing.T) {
		require.NoError(t, repo.SetRefreshToken(ctx, user.ID, "first"))
		require.NoError(t, repo.SwapRefreshToken(ctx, user.ID, "first", "second"))
		assert.ErrorIs(t, repo.SwapRefreshToken(ctx, user.ID, "first", "third"), store.ErrNotFound)
		assert.ErrorIs(t, repo.SwapRefreshToken(ctx, user.ID, "", "third"), store.ErrNotFound)

		stored, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "second", stored.RefreshTokenHash)
	})

	t.Run("reset token consumed once", func(t *testing.T) {
		now := time.Now().UTC()
		expiry := now.Add(10 * time.Minute)
		require.NoError(t, repo.SetResetToken(ctx, user.ID, "reset-"+suffix, &expiry))

		found, err := repo.GetByResetTokenHash(ctx, "reset-"+suffix)
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		assert.ErrorIs(t, repo.ConsumeResetToken(ctx, user.ID, "reset-"+suffix, "new-hash", expiry.Add(time.Second)), store.ErrNotFound)
		require.NoError(t, repo.ConsumeResetToken(ctx, user.ID, "reset-"+suffix, "new-hash", now))
		assert.ErrorIs(t, repo.ConsumeResetToken(ctx, user.ID, "reset-"+suffix, "other-hash", now), store.ErrNotFound)

		stored, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", stored.PasswordHash)
		assert.Empty(t, stored.RefreshTokenHash)
		assert.Empty(t, stored.ResetTokenHash)
		assert.Nil(t, stored.ResetTokenExpiry)
	})
}

func TestMarketplaceRepositories(t *testing.T) {
	ctx := context.Background()
	users := store.NewUserRepository(conn)
	companies := store.NewCompanyRepository(conn)
	jobs := store.NewJobRepository(conn)
	applications := store.NewApplicationRepository(conn)
	suffix := newID()

	owner := createUser(t, users, "owner-"+suffix+"@example.com", "")
	student := createUser(t, users, "student-"+suffix+"@example.com", "")

	company, err := companies.Create(ctx, types.Company{ID: newID(), CompanyName: "Acme " + suffix, UserID: owner.ID})
	require.NoError(t, err)
	_, err = companies.Create(ctx, types.Company{ID: newID(), CompanyName: "Acme " + suffix, UserID: owner.ID})
	assert.ErrorIs(t, err, store.ErrConflict)

	job, err := jobs.Create(ctx, types.Job{
		ID:           newID(),
		Title:        "Go Engineer " + suffix,
		Description:  "100% remote_work",
		Requirements: []string{"Go", "SQL"},
		Salary:       1200.5,
		Location:     []string{"Remote"},
		JobType:      "Full-time",
		Experience:   "2 years",
		Position:     3,
		CompanyID:    company.ID,
		CreatedBy:    owner.ID,
	})
	require.NoError(t, err)

	matched, err := jobs.List(ctx, "go engineer "+suffix)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, []string{"Go", "SQL"}, matched[0].Requirements)

	// LIKE wildcards in the keyword match literally.
	literal, err := jobs.List(ctx, "100% remote_")
	require.NoError(t, err)
	assert.NotEmpty(t, literal)
	none, err := jobs.List(ctx, "100%x")
	require.NoError(t, err)
	assert.Empty(t, none)

	application, err := applications.Create(ctx, types.Application{
		ID:          newID(),
		JobID:       job.ID,
		ApplicantID: student.ID,
		Status:      types.StatusPending,
	})
	require.NoError(t, err)
	_, err = applications.Create(ctx, types.Application{
		ID:          newID(),
		JobID:       job.ID,
		ApplicantID: student.ID,
		Status:      types.StatusPending,
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	updated, err := applications.UpdateStatus(ctx, application.ID, types.StatusInterview)
	require.NoError(t, err)
	assert.Equal(t, types.StatusInterview, updated.Status)

	interviews, err := applications.CountByApplicant(ctx, student.ID, types.StatusInterview)
	require.NoError(t, err)
	assert.Equal(t, int64(1), interviews)

	counts, err := applications.MonthlyCounts(ctx, student.ID, time.Now().AddDate(0, -1, 0))
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(1), counts[0].Count)

	require.NoError(t, applications.DeleteByJob(ctx, job.ID))
	require.NoError(t, jobs.Delete(ctx, job.ID))
	assert.ErrorIs(t, jobs.Delete(ctx, job.ID), store.ErrNotFound)

	remaining, err := applications.ListByApplicant(ctx, student.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
