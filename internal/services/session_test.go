package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/internal/token"
	"github.com/jobfinder/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ada@example.com", types.RoleStudent)

	_, err := f.users.Register(ctx, services.RegisterInput{
		FullName: "Second Ada",
		Email:    "  ADA@example.com ",
		Password: "another-pass",
	})
	assertKind(t, err, services.ErrConflict, "Email Already Exists")
}

func TestRegisterDefaultsRoleAndHashesPassword(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "grace@example.com", "")

	assert.Equal(t, types.RoleStudent, user.Role)
	assert.NotEqual(t, testPassword, user.PasswordHash)
	assert.Equal(t, 10, user.ProfileScore)

	data, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(data), user.PasswordHash)
	assert.NotContains(t, string(data), "password")

	assert.Equal(t, []string{services.EventUserRegistered}, f.published.types())
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Register(context.Background(), services.RegisterInput{
		FullName: "Mallory",
		Email:    "mallory@example.com",
		Password: testPassword,
		Role:     "admin",
	})
	assertKind(t, err, services.ErrValidation, "")
}

func TestLoginStoresRefreshTokenHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "linus@example.com", types.RoleStudent)

	session, err := f.sessions.Login(ctx, "linus@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)

	stored, err := f.store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, token.Hash(session.RefreshToken), stored.RefreshTokenHash)
}

func TestLoginByPhoneNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.users.Register(ctx, services.RegisterInput{
		FullName:    "Phone User",
		Email:       "phone@example.com",
		Password:    testPassword,
		PhoneNumber: "+15550100",
	})
	require.NoError(t, err)

	_, err = f.sessions.Login(ctx, "+15550100", testPassword)
	assert.NoError(t, err)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ken@example.com", types.RoleStudent)

	_, wrongPassword := f.sessions.Login(ctx, "ken@example.com", "not-the-password")
	_, unknownUser := f.sessions.Login(ctx, "nobody@example.com", testPassword)

	assertKind(t, wrongPassword, services.ErrInvalidCredentials, "Invalid email or password")
	assertKind(t, unknownUser, services.ErrInvalidCredentials, "Invalid email or password")
}

func TestLoginRequiresBothFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.Login(context.Background(), " ", testPassword)
	assertKind(t, err, services.ErrValidation, "Both identifier and password are required")
}

func TestRefreshRotatesAndRejectsReuse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "barbara@example.com", types.RoleStudent)

	session, err := f.sessions.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)

	rotated, err := f.sessions.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	stored, err := f.store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, token.Hash(rotated.RefreshToken), stored.RefreshTokenHash)

	_, err = f.sessions.Refresh(ctx, session.RefreshToken)
	assertKind(t, err, services.ErrTokenMismatch, "Refresh token is expired or used")

	_, err = f.sessions.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sessions.Refresh(ctx, "")
	assertKind(t, err, services.ErrMissingToken, "Refresh token is required")

	_, err = f.sessions.Refresh(ctx, "not-a-jwt")
	assertKind(t, err, services.ErrInvalidToken, "Invalid or expired refresh token")

	orphan, err := f.issuer.IssuePair("01J00000000000000000000000")
	require.NoError(t, err)
	_, err = f.sessions.Refresh(ctx, orphan.RefreshToken)
	assertKind(t, err, services.ErrUnauthorized, "Unauthorized access due to invalid refresh token")

	// An access token is not accepted as a refresh token.
	_, err = f.sessions.Refresh(ctx, orphan.AccessToken)
	assertKind(t, err, services.ErrInvalidToken, "")
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "margaret@example.com", types.RoleStudent)

	session, err := f.sessions.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Logout(ctx, user.ID))

	_, err = f.sessions.Refresh(ctx, session.RefreshToken)
	assertKind(t, err, services.ErrTokenMismatch, "")
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "dennis@example.com", types.RoleRecruiter)

	session, err := f.sessions.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)

	got, err := f.sessions.Authenticate(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, types.RoleRecruiter, got.Role)

	_, err = f.sessions.Authenticate(ctx, "")
	assertKind(t, err, services.ErrUnauthenticated, "Unauthorized request")

	_, err = f.sessions.Authenticate(ctx, session.RefreshToken)
	assertKind(t, err, services.ErrInvalidToken, "Invalid access token")
}
