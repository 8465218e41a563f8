// Package memstore keeps repositories in process memory. It enforces the
// same uniqueness rules as the database backends and is used for local
// runs and tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/types"
)

// Store holds every collection behind one lock.
type Store struct {
	mu           sync.RWMutex
	users        map[string]types.User
	companies    map[string]types.Company
	jobs         map[string]types.Job
	applications map[string]types.Application
	now          func() time.Time
}

func New() *Store {
	return &Store{
		users:        make(map[string]types.User),
		companies:    make(map[string]types.Company),
		jobs:         make(map[string]types.Job),
		applications: make(map[string]types.Application),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time used for record timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

func (s *Store) Companies() *CompanyRepository { return &CompanyRepository{s: s} }

func (s *Store) Jobs() *JobRepository { return &JobRepository{s: s} }

func (s *Store) Applications() *ApplicationRepository { return &ApplicationRepository{s: s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// UserRepository stores users.
type UserRepository struct{ s *Store }

func cloneUser(u types.User) types.User {
	u.Profile.Skills = slices.Clone(u.Profile.Skills)
	if u.Profile.Skills == nil {
		u.Profile.Skills = []string{}
	}
	if u.ResetTokenExpiry != nil {
		t := *u.ResetTokenExpiry
		u.ResetTokenExpiry = &t
	}
	return u
}

// conflicts reports whether u collides with another user's email or phone.
func (r *UserRepository) conflicts(u types.User) bool {
	for id, other := range r.s.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) {
			return true
		}
		if u.PhoneNumber != "" && other.PhoneNumber == u.PhoneNumber {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok || r.conflicts(user) {
		return types.User{}, store.ErrConflict
	}
	now := r.s.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (r *UserRepository) find(match func(types.User) bool) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (types.User, error) {
	return store.ByEmailOrPhone(ctx, identifier, r.GetByEmail, func(_ context.Context, phone string) (types.User, error) {
		return r.find(func(u types.User) bool { return u.PhoneNumber != "" && u.PhoneNumber == phone })
	})
}

func (r *UserRepository) GetByResetTokenHash(_ context.Context, tokenHash string) (types.User, error) {
	if tokenHash == "" {
		return types.User{}, store.ErrNotFound
	}
	return r.find(func(u types.User) bool { return u.ResetTokenHash == tokenHash })
}

func (r *UserRepository) ListByIDs(_ context.Context, ids []string) ([]types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]types.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if r.conflicts(user) {
		return types.User{}, store.ErrConflict
	}
	current.FullName = user.FullName
	current.Email = user.Email
	current.PhoneNumber = user.PhoneNumber
	current.Profile = user.Profile
	current.ProfileScore = user.ProfileScore
	current.UpdatedAt = r.s.now()
	r.s.users[user.ID] = cloneUser(current)
	return cloneUser(current), nil
}

// modify applies fn to user id under the write lock. fn returns false to
// abort with store.ErrNotFound.
func (r *UserRepository) modify(id string, fn func(*types.User) bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || !fn(&u) {
		return store.ErrNotFound
	}
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.modify(id, func(u *types.User) bool {
		u.PasswordHash = passwordHash
		return true
	})
}

func (r *UserRepository) SetRefreshToken(_ context.Context, id, tokenHash string) error {
	return r.modify(id, func(u *types.User) bool {
		u.RefreshTokenHash = tokenHash
		return true
	})
}

func (r *UserRepository) SwapRefreshToken(_ context.Context, id, oldHash, newHash string) error {
	return r.modify(id, func(u *types.User) bool {
		if oldHash == "" || u.RefreshTokenHash != oldHash {
			return false
		}
		u.RefreshTokenHash = newHash
		return true
	})
}

func (r *UserRepository) SetResetToken(_ context.Context, id, tokenHash string, expiry *time.Time) error {
	return r.modify(id, func(u *types.User) bool {
		u.ResetTokenHash = tokenHash
		u.ResetTokenExpiry = nil
		if expiry != nil && tokenHash != "" {
			t := *expiry
			u.ResetTokenExpiry = &t
		}
		return true
	})
}

func (r *UserRepository) ConsumeResetToken(_ context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	return r.modify(id, func(u *types.User) bool {
		if tokenHash == "" || u.ResetTokenHash != tokenHash ||
			u.ResetTokenExpiry == nil || !u.ResetTokenExpiry.After(now) {
			return false
		}
		u.PasswordHash = passwordHash
		u.ResetTokenHash = ""
		u.ResetTokenExpiry = nil
		u.RefreshTokenHash = ""
		return true
	})
}

func (r *UserRepository) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}

func (r *UserRepository) AverageProfileScore(context.Context) (float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if len(r.s.users) == 0 {
		return 0, nil
	}
	total := 0
	for _, u := range r.s.users {
		total += u.ProfileScore
	}
	return float64(total) / float64(len(r.s.users)), nil
}

// CompanyRepository stores companies.
type CompanyRepository struct{ s *Store }

func (r *CompanyRepository) nameTaken(c types.Company) bool {
	for id, other := range r.s.companies {
		if id != c.ID && other.CompanyName == c.CompanyName {
			return true
		}
	}
	return false
}

func (r *CompanyRepository) Create(_ context.Context, company types.Company) (types.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.companies[company.ID]; ok || r.nameTaken(company) {
		return types.Company{}, store.ErrConflict
	}
	now := r.s.now()
	company.CreatedAt = now
	company.UpdatedAt = now
	r.s.companies[company.ID] = company
	return company, nil
}

func (r *CompanyRepository) GetByID(_ context.Context, id string) (types.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.companies[id]
	if !ok {
		return types.Company{}, store.ErrNotFound
	}
	return c, nil
}

func (r *CompanyRepository) ListByOwner(_ context.Context, userID string) ([]types.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]types.Company, 0)
	for _, c := range r.s.companies {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (r *CompanyRepository) ListByIDs(_ context.Context, ids []string) ([]types.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]types.Company, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.companies[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *CompanyRepository) Update(_ context.Context, company types.Company) (types.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.companies[company.ID]
	if !ok {
		return types.Company{}, store.ErrNotFound
	}
	if r.nameTaken(company) {
		return types.Company{}, store.ErrConflict
	}
	company.CreatedAt = current.CreatedAt
	company.UpdatedAt = r.s.now()
	r.s.companies[company.ID] = company
	return company, nil
}

func (r *CompanyRepository) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.companies)), nil
}

// JobRepository stores jobs.
type JobRepository struct{ s *Store }

func cloneJob(j types.Job) types.Job {
	j.Requirements = slices.Clone(j.Requirements)
	j.Location = slices.Clone(j.Location)
	return j
}

func (r *JobRepository) Create(_ context.Context, job types.Job) (types.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.jobs[job.ID]; ok {
		return types.Job{}, store.ErrConflict
	}
	now := r.s.now()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.s.jobs[job.ID] = cloneJob(job)
	return job, nil
}

func (r *JobRepository) GetByID(_ context.Context, id string) (types.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return types.Job{}, store.ErrNotFound
	}
	return cloneJob(j), nil
}

func (r *JobRepository) filter(match func(types.Job) bool) []types.Job {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]types.Job, 0)
	for _, j := range r.s.jobs {
		if match(j) {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(i, k int) bool { return newer(out[i].CreatedAt, out[i].ID, out[k].CreatedAt, out[k].ID) })
	return out
}

func (r *JobRepository) List(_ context.Context, keyword string) ([]types.Job, error) {
	keyword = strings.ToLower(keyword)
	return r.filter(func(j types.Job) bool {
		return keyword == "" ||
			strings.Contains(strings.ToLower(j.Title), keyword) ||
			strings.Contains(strings.ToLower(j.Description), keyword)
	}), nil
}

func (r *JobRepository) ListByCreator(_ context.Context, userID string) ([]types.Job, error) {
	return r.filter(func(j types.Job) bool { return j.CreatedBy == userID }), nil
}

func (r *JobRepository) ListByIDs(_ context.Context, ids []string) ([]types.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]types.Job, 0, len(ids))
	for _, id := range ids {
		if j, ok := r.s.jobs[id]; ok {
			out = append(out, cloneJob(j))
		}
	}
	return out, nil
}

func (r *JobRepository) Update(_ context.Context, job types.Job) (types.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.jobs[job.ID]
	if !ok {
		return types.Job{}, store.ErrNotFound
	}
	job.CreatedAt = current.CreatedAt
	job.CreatedBy = current.CreatedBy
	job.UpdatedAt = r.s.now()
	r.s.jobs[job.ID] = cloneJob(job)
	return job, nil
}

// Delete removes job id and, like the database foreign key, its applications.
func (r *JobRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.jobs[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.s.jobs, id)
	for appID, a := range r.s.applications {
		if a.JobID == id {
			delete(r.s.applications, appID)
		}
	}
	return nil
}

func (r *JobRepository) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.jobs)), nil
}

// ApplicationRepository stores applications.
type ApplicationRepository struct{ s *Store }

func (r *ApplicationRepository) Create(_ context.Context, application types.Application) (types.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.applications[application.ID]; ok {
		return types.Application{}, store.ErrConflict
	}
	for _, other := range r.s.applications {
		if other.JobID == application.JobID && other.ApplicantID == application.ApplicantID {
			return types.Application{}, store.ErrConflict
		}
	}
	now := r.s.now()
	application.CreatedAt = now
	application.UpdatedAt = now
	r.s.applications[application.ID] = application
	return application, nil
}

func (r *ApplicationRepository) GetByID(_ context.Context, id string) (types.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.applications[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	return a, nil
}

func (r *ApplicationRepository) filter(match func(types.Application) bool) []types.Application {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]types.Application, 0)
	for _, a := range r.s.applications {
		if match(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out
}

func (r *ApplicationRepository) ListByApplicant(_ context.Context, applicantID string) ([]types.Application, error) {
	return r.filter(func(a types.Application) bool { return a.ApplicantID == applicantID }), nil
}

func (r *ApplicationRepository) ListByJob(_ context.Context, jobID string) ([]types.Application, error) {
	return r.filter(func(a types.Application) bool { return a.JobID == jobID }), nil
}

func (r *ApplicationRepository) UpdateStatus(_ context.Context, id, status string) (types.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.applications[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = r.s.now()
	r.s.applications[id] = a
	return a, nil
}

func (r *ApplicationRepository) DeleteByJob(_ context.Context, jobID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, a := range r.s.applications {
		if a.JobID == jobID {
			delete(r.s.applications, id)
		}
	}
	return nil
}

func (r *ApplicationRepository) CountByApplicant(_ context.Context, applicantID, status string) (int64, error) {
	matches := r.filter(func(a types.Application) bool {
		return a.ApplicantID == applicantID && (status == "" || a.Status == status)
	})
	return int64(len(matches)), nil
}

func (r *ApplicationRepository) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.applications)), nil
}

func (r *ApplicationRepository) MonthlyCounts(_ context.Context, applicantID string, since time.Time) ([]types.MonthlyCount, error) {
	type key struct{ year, month int }
	buckets := make(map[key]int64)
	for _, a := range r.filter(func(a types.Application) bool {
		return a.ApplicantID == applicantID && !a.CreatedAt.Before(since)
	}) {
		t := a.CreatedAt.UTC()
		buckets[key{t.Year(), int(t.Month())}]++
	}

	out := make([]types.MonthlyCount, 0, len(buckets))
	for k, n := range buckets {
		out = append(out, types.MonthlyCount{Year: k.year, Month: k.month, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

// newer orders by creation time descending, then id descending.
func newer(at time.Time, id string, bt time.Time, bid string) bool {
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return id > bid
}
