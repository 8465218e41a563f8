package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	issuer, err := NewIssuer("access-secret", "refresh-secret", time.Hour, 240*time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestNewIssuerRequiresSecrets(t *testing.T) {
	_, err := NewIssuer("", "refresh", time.Hour, time.Hour)
	assert.Error(t, err)

	_, err = NewIssuer("access", " ", time.Hour, time.Hour)
	assert.Error(t, err)

	_, err = NewIssuer("access", "refresh", 0, time.Hour)
	assert.Error(t, err)
}

func TestIssuePairRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	pair, err := issuer.IssuePair("user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	subject, err := issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)

	subject, err = issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	issuer := newTestIssuer(t)
	pair, err := issuer.IssuePair("user-1")
	require.NoError(t, err)

	_, err = issuer.ParseAccess(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssuePairIsUniqueWithinSameSecond(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	issuer := newTestIssuer(t).WithClock(func() time.Time { return fixed })

	first, err := issuer.IssuePair("user-1")
	require.NoError(t, err)
	second, err := issuer.IssuePair("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, Hash(first.RefreshToken), Hash(second.RefreshToken))
}

func TestExpiredTokenIsRejected(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	issuer := newTestIssuer(t)
	pair, err := issuer.WithClock(func() time.Time { return past }).IssuePair("user-1")
	require.NoError(t, err)

	_, err = issuer.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	subject, err := issuer.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestParseRejectsForeignSignatures(t *testing.T) {
	issuer := newTestIssuer(t)

	other, err := NewIssuer("other-access", "other-refresh", time.Hour, time.Hour)
	require.NoError(t, err)
	pair, err := other.IssuePair("user-1")
	require.NoError(t, err)

	_, err = issuer.ParseAccess(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseAccess("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseAccess("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	issuer := newTestIssuer(t)
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashIsStable(t *testing.T) {
	assert.Equal(t, Hash("abc"), Hash("abc"))
	assert.NotEqual(t, Hash("abc"), Hash("abd"))
	assert.Len(t, Hash("abc"), 64)
}
