package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"github.com/jobfinder/apiserver/internal/metrics"
	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/internal/token"
	"github.com/jobfinder/apiserver/types"
)

// TokenIssuer issues and verifies session tokens.
type TokenIssuer interface {
	IssuePair(userID string) (token.Pair, error)
	ParseAccess(tokenString string) (string, error)
	ParseRefresh(tokenString string) (string, error)
}

// Session is the result of a successful login.
type Session struct {
	User types.User `json:"user"`
	token.Pair
}

const invalidCredentialsMessage = "Invalid email or password"

// SessionService logs users in and out and rotates refresh tokens.
// Each user has a single live refresh token.
type SessionService struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer

	dummyOnce sync.Once
	dummyHash string
}

func NewSessionService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *SessionService {
	return &SessionService{users: users, hasher: hasher, tokens: tokens}
}

// Login authenticates identifier (email or phone) and password, and
// stores the new refresh token on the user.
func (s *SessionService) Login(ctx context.Context, identifier, password string) (Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return Session{}, invalid("Both identifier and password are required")
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			metrics.RecordLogin(metrics.OutcomeError)
			return Session{}, err
		}
		// Spend the same bcrypt work as a real comparison.
		_ = s.hasher.Compare(s.placeholderHash(), password)
		metrics.RecordLogin(metrics.OutcomeFailure)
		return Session{}, newError(ErrInvalidCredentials, invalidCredentialsMessage)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.RecordLogin(metrics.OutcomeFailure)
			return Session{}, newError(ErrInvalidCredentials, invalidCredentialsMessage)
		}
		metrics.RecordLogin(metrics.OutcomeError)
		return Session{}, err
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		metrics.RecordLogin(metrics.OutcomeError)
		return Session{}, err
	}
	hash := token.Hash(pair.RefreshToken)
	if err := s.users.SetRefreshToken(ctx, user.ID, hash); err != nil {
		metrics.RecordLogin(metrics.OutcomeError)
		return Session{}, err
	}
	user.RefreshTokenHash = hash

	metrics.RecordLogin(metrics.OutcomeSuccess)
	return Session{User: user, Pair: pair}, nil
}

// Refresh rotates refreshToken into a new pair. A refresh token can be
// used once; presenting a superseded token fails with ErrTokenMismatch.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	pair, err := s.refresh(ctx, strings.TrimSpace(refreshToken))
	switch {
	case err == nil:
		metrics.RecordRefresh(metrics.OutcomeSuccess)
	case errors.As(err, new(*Error)):
		metrics.RecordRefresh(metrics.OutcomeFailure)
	default:
		metrics.RecordRefresh(metrics.OutcomeError)
	}
	return pair, err
}

func (s *SessionService) refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	if refreshToken == "" {
		return token.Pair{}, newError(ErrMissingToken, "Refresh token is required")
	}

	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return token.Pair{}, newError(ErrInvalidToken, "Invalid or expired refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return token.Pair{}, newError(ErrUnauthorized, "Unauthorized access due to invalid refresh token")
		}
		return token.Pair{}, err
	}

	presented := token.Hash(refreshToken)
	if user.RefreshTokenHash == "" ||
		subtle.ConstantTimeCompare([]byte(presented), []byte(user.RefreshTokenHash)) != 1 {
		return token.Pair{}, newError(ErrTokenMismatch, "Refresh token is expired or used")
	}

	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return token.Pair{}, err
	}
	if err := s.users.SwapRefreshToken(ctx, user.ID, presented, token.Hash(pair.RefreshToken)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return token.Pair{}, newError(ErrTokenMismatch, "Refresh token is expired or used")
		}
		return token.Pair{}, err
	}
	return pair, nil
}

// Logout clears the stored refresh token of userID.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshToken(ctx, userID, ""); err != nil {
		return notFoundOr(err, "User not found")
	}
	return nil
}

// Authenticate resolves an access token to its user. The stored refresh
// token is not consulted.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (types.User, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return types.User{}, newError(ErrUnauthenticated, "Unauthorized request")
	}

	userID, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return types.User{}, newError(ErrInvalidToken, "Invalid access token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, newError(ErrUnauthenticated, "Invalid access token")
		}
		return types.User{}, err
	}
	return user, nil
}

func (s *SessionService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("placeholder-password")
	})
	return s.dummyHash
}
