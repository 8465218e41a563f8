package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jobfinder/apiserver/internal/logging"
	"github.com/jobfinder/apiserver/internal/mailer"
	"github.com/jobfinder/apiserver/internal/metrics"
	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/internal/token"
	"github.com/jobfinder/apiserver/types"
	"github.com/samber/oops"
)

const resetTokenBytes = 32

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// AccountService manages passwords: changes and the forgot/reset flow.
type AccountService struct {
	users     UserRepository
	hasher    PasswordHasher
	mail      Mailer
	resetTTL  time.Duration
	resetBase string
	logger    *slog.Logger
	now       func() time.Time
}

// NewAccountService constructs an AccountService. Reset links point at
// frontendURL + "/reset-password".
func NewAccountService(users UserRepository, hasher PasswordHasher, mail Mailer, resetTTL time.Duration, frontendURL string, logger *slog.Logger) *AccountService {
	return &AccountService{
		users:     users,
		hasher:    hasher,
		mail:      mail,
		resetTTL:  resetTTL,
		resetBase: strings.TrimRight(frontendURL, "/") + "/reset-password",
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// ChangePassword replaces the password of userID after verifying oldPassword.
func (s *AccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return invalid("Both oldPassword and newPassword are required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "User not found")
	}
	if err := s.hasher.Compare(user.PasswordHash, oldPassword); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return newError(ErrInvalidCredentials, "Old password is incorrect")
		}
		return err
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return notFoundOr(s.users.UpdatePassword(ctx, user.ID, hashed), "User not found")
}

// RequestPasswordReset stores a reset token for email and mails the link.
// If delivery fails the token is cleared again.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalid("Email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RecordResetRequest(metrics.OutcomeFailure)
			return newError(ErrNotFound, "User not found")
		}
		return err
	}

	raw, err := newResetToken()
	if err != nil {
		return err
	}
	expiry := s.now().Add(s.resetTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token.Hash(raw), &expiry); err != nil {
		return err
	}

	msg, err := mailer.PasswordReset(user.Email, user.FullName, s.resetURL(raw), s.resetTTL)
	if err == nil {
		err = s.mail.Send(ctx, msg)
	}
	if err != nil {
		if clearErr := s.users.SetResetToken(context.WithoutCancel(ctx), user.ID, "", nil); clearErr != nil {
			logging.LogError(s.logger, "clear reset token failed", clearErr, "user_id", user.ID)
		}
		metrics.RecordResetRequest(metrics.OutcomeError)
		return wrapError(ErrDelivery, "Error sending email. Please try again later.",
			oops.Code("mail_delivery_failed").With("user_id", user.ID).Wrap(err))
	}

	metrics.RecordResetRequest(metrics.OutcomeSuccess)
	return nil
}

// ResetPassword sets a new password using a reset token. A token can be
// used once.
func (s *AccountService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	resetToken = strings.TrimSpace(resetToken)
	if resetToken == "" || newPassword == "" {
		return invalid("Token and new password are required")
	}

	user, err := s.matchResetToken(ctx, resetToken)
	if err != nil {
		return err
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	err = s.users.ConsumeResetToken(ctx, user.ID, token.Hash(resetToken), hashed, s.now())
	if errors.Is(err, store.ErrNotFound) {
		return newError(ErrInvalidOrExpiredToken, "Invalid or expired reset token")
	}
	return err
}

// ValidateResetToken reports whether resetToken is currently usable.
func (s *AccountService) ValidateResetToken(ctx context.Context, resetToken string) error {
	resetToken = strings.TrimSpace(resetToken)
	if resetToken == "" {
		return invalid("Token is required")
	}
	_, err := s.matchResetToken(ctx, resetToken)
	return err
}

func (s *AccountService) matchResetToken(ctx context.Context, resetToken string) (types.User, error) {
	hash := token.Hash(resetToken)
	user, err := s.users.GetByResetTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, newError(ErrInvalidOrExpiredToken, "Invalid or expired reset token")
		}
		return types.User{}, err
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(user.ResetTokenHash)) != 1 ||
		user.ResetTokenExpiry == nil || !user.ResetTokenExpiry.After(s.now()) {
		return types.User{}, newError(ErrInvalidOrExpiredToken, "Invalid or expired reset token")
	}
	return user, nil
}

func (s *AccountService) resetURL(raw string) string {
	return s.resetBase + "?token=" + url.QueryEscape(raw)
}

func newResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
