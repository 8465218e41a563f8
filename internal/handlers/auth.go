package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/internal/token"
	"github.com/jobfinder/apiserver/internal/validate"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// Gate authenticates requests and enforces roles.
type Gate struct {
	sessions *services.SessionService
	logger   *slog.Logger
}

func NewGate(sessions *services.SessionService, logger *slog.Logger) *Gate {
	return &Gate{sessions: sessions, logger: logger}
}

// RequireAuth resolves the access token from the accessToken cookie or
// the Authorization header and attaches the user to the request context.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.sessions.Authenticate(r.Context(), accessToken(r))
		if err != nil {
			writeFailure(w, r, g.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// RequireRole rejects authenticated users without role. It must run after
// RequireAuth.
func (g *Gate) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := userFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized request")
				return
			}
			if !strings.EqualFold(user.Role, role) {
				writeError(w, http.StatusForbidden, "Access denied: "+role+" role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CookieOptions controls the session cookies.
type CookieOptions struct {
	MaxAge time.Duration
	// Production relaxes SameSite to None so a separately hosted frontend
	// receives the cookies.
	Production bool
}

func (o CookieOptions) cookie(name, value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteStrictMode
	if o.Production {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: sameSite,
	}
}

func (o CookieOptions) set(w http.ResponseWriter, pair token.Pair) {
	maxAge := int(o.MaxAge / time.Second)
	http.SetCookie(w, o.cookie(accessTokenCookie, pair.AccessToken, maxAge))
	http.SetCookie(w, o.cookie(refreshTokenCookie, pair.RefreshToken, maxAge))
}

func (o CookieOptions) clear(w http.ResponseWriter) {
	http.SetCookie(w, o.cookie(accessTokenCookie, "", -1))
	http.SetCookie(w, o.cookie(refreshTokenCookie, "", -1))
}

// AuthHandler provides the session and password endpoints.
type AuthHandler struct {
	users     *services.UserService
	sessions  *services.SessionService
	accounts  *services.AccountService
	cookies   CookieOptions
	validator *validate.Validator
	maxUpload int64
	logger    *slog.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(
	users *services.UserService,
	sessions *services.SessionService,
	accounts *services.AccountService,
	cookies CookieOptions,
	validator *validate.Validator,
	maxUpload int64,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:     users,
		sessions:  sessions,
		accounts:  accounts,
		cookies:   cookies,
		validator: validator,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// AuthRouter registers the account routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler, profile *ProfileHandler, gate *Gate) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/refresh-token", handler.RefreshToken)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/reset-password", handler.ResetPassword)
	r.Get("/validate-reset-token", handler.ValidateResetToken)

	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAuth)
		r.Post("/logout", handler.Logout)
		r.Post("/change-password", handler.ChangePassword)
		ProfileRouter(r, profile)
	})
}

// Register creates an account from a JSON or multipart body. Multipart
// bodies may carry avatar and coverImage files.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	input := services.RegisterInput{}

	if isMultipart(r) {
		cleanup, err := parseMultipart(r)
		defer cleanup()
		if err != nil {
			writeFailure(w, r, h.logger, err)
			return
		}
		req.fromForm(r.MultipartForm.Value)
		if input.Avatar, err = imageFile(r, "avatar", h.maxUpload); err != nil {
			writeFailure(w, r, h.logger, err)
			return
		}
		if input.CoverImage, err = imageFile(r, "coverImage", h.maxUpload); err != nil {
			writeFailure(w, r, h.logger, err)
			return
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	req.normalize()
	if err := h.validator.Struct(req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	input.FullName = req.FullName
	input.Email = req.Email
	input.Password = req.Password
	input.PhoneNumber = req.PhoneNumber
	input.Role = req.Role
	input.Bio = req.Bio

	user, err := h.users.Register(r.Context(), input)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, user, "User registered successfully")
}

// Login verifies credentials, sets the session cookies and returns the
// user with both tokens.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	session, err := h.sessions.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	h.cookies.set(w, session.Pair)
	writeData(w, http.StatusOK, session, "User logged in successfully")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	if err := h.sessions.Logout(r.Context(), user.ID); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	h.cookies.clear(w)
	writeData(w, http.StatusOK, map[string]any{}, "User logged out successfully")
}

// RefreshToken rotates the refresh token from the refreshToken cookie or
// the request body.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		req.RefreshToken = cookie.Value
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	h.cookies.set(w, pair)
	writeData(w, http.StatusOK, pair, "Access token refreshed successfully")
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	user, _ := userFromContext(r.Context())
	if err := h.accounts.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{}, "Password changed successfully")
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validator.Struct(req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{}, "Password reset link sent to your email")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{}, "Password has been reset successfully")
}

func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.ValidateResetToken(r.Context(), r.URL.Query().Get("token")); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"valid": true}, "Token is valid")
}
