package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jobfinder/apiserver/internal/mailer"
	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/internal/storage"
	"github.com/jobfinder/apiserver/internal/store/memstore"
	"github.com/jobfinder/apiserver/internal/token"
	"github.com/jobfinder/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "secret123"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeUploader stores uploads in memory.
type fakeUploader struct {
	mu      sync.Mutex
	objects map[string]storage.File
	deleted []string
	fail    error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string]storage.File)}
}

func (u *fakeUploader) Upload(_ context.Context, folder string, file storage.File) (storage.Object, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail != nil {
		return storage.Object{}, u.fail
	}
	key := storage.ObjectKey(folder, file.Name)
	u.objects[key] = file
	return storage.Object{Key: key, URL: "https://files.test/" + key}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

// fakeMailer records sent messages.
type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

// recordingPublisher keeps published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []services.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, data []byte, _ map[string]string) (string, error) {
	var event services.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return event.Type, nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// fixture wires every service over one in-memory store.
type fixture struct {
	store     *memstore.Store
	files     *fakeUploader
	mail      *fakeMailer
	published *recordingPublisher
	issuer    *token.Issuer

	users        *services.UserService
	sessions     *services.SessionService
	accounts     *services.AccountService
	companies    *services.CompanyService
	jobs         *services.JobService
	applications *services.ApplicationService
	dashboard    *services.DashboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     memstore.New(),
		files:     newFakeUploader(),
		mail:      &fakeMailer{},
		published: &recordingPublisher{},
	}
	var base = time.Now().UTC()
	var tick int64
	var mu sync.Mutex
	f.store.WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	})

	issuer, err := token.NewIssuer("access-secret", "refresh-secret", time.Hour, 240*time.Hour)
	require.NoError(t, err)
	f.issuer = issuer

	users := f.store.Users()
	companies := f.store.Companies()
	jobs := f.store.Jobs()
	applications := f.store.Applications()

	hasher := services.NewBcryptHasher(bcrypt.MinCost)
	events := services.NewNotifier(f.published, "notifications", discardLogger)

	f.users = services.NewUserService(users, hasher, f.files, events, discardLogger)
	f.sessions = services.NewSessionService(users, hasher, issuer)
	f.accounts = services.NewAccountService(users, hasher, f.mail, 10*time.Minute, "https://app.test/", discardLogger)
	f.companies = services.NewCompanyService(companies, f.files, discardLogger)
	f.jobs = services.NewJobService(jobs, companies, applications)
	f.applications = services.NewApplicationService(applications, jobs, companies, users, events)
	f.dashboard = services.NewDashboardService(users, companies, jobs, applications)
	return f
}

func (f *fixture) register(t *testing.T, email, role string) types.User {
	t.Helper()
	user, err := f.users.Register(context.Background(), services.RegisterInput{
		FullName: "User " + email,
		Email:    email,
		Password: testPassword,
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) company(t *testing.T, owner types.User, name string) types.Company {
	t.Helper()
	company, err := f.companies.Register(context.Background(), owner.ID, services.CompanyInput{CompanyName: name})
	require.NoError(t, err)
	return company
}

func (f *fixture) job(t *testing.T, owner types.User, company types.Company, title string) types.JobView {
	t.Helper()
	salary := 50000.0
	position := 2
	job, err := f.jobs.Post(context.Background(), owner.ID, services.JobInput{
		Title:        title,
		Description:  "Build and run " + title + " services",
		Requirements: []string{"Go", "SQL"},
		Salary:       &salary,
		Location:     []string{"Remote"},
		JobType:      "Full-time",
		Experience:   "2 years",
		Position:     &position,
		CompanyID:    company.ID,
	})
	require.NoError(t, err)
	return job
}

var resetTokenPattern = regexp.MustCompile(`token=([0-9a-f]+)`)

// resetTokenFrom extracts the raw reset token from a password reset email.
func resetTokenFrom(t *testing.T, msg mailer.Message) string {
	t.Helper()
	match := resetTokenPattern.FindStringSubmatch(msg.HTML)
	require.Len(t, match, 2, "reset link not found in %q", msg.HTML)
	return match[1]
}

// assertKind checks that err is a services.Error of kind with message.
func assertKind(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)

	var serviceErr *services.Error
	require.True(t, errors.As(err, &serviceErr), "expected *services.Error, got %T", err)
	if message != "" {
		assert.Equal(t, message, serviceErr.Message)
	}
}
