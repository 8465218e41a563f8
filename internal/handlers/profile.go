package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/internal/storage"
	"github.com/jobfinder/apiserver/internal/validate"
	"github.com/jobfinder/apiserver/types"
)

// ProfileHandler serves the authenticated user's own record.
type ProfileHandler struct {
	users     *services.UserService
	validator *validate.Validator
	maxUpload int64
	logger    *slog.Logger
}

func NewProfileHandler(users *services.UserService, validator *validate.Validator, maxUpload int64, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, validator: validator, maxUpload: maxUpload, logger: logger}
}

// ProfileRouter registers profile routes. The router must already require
// authentication.
func ProfileRouter(r chi.Router, handler *ProfileHandler) {
	r.Get("/me", handler.Me)
	r.Patch("/profile/avatar", handler.UpdateAvatar)
	r.Patch("/profile/cover-image", handler.UpdateCoverImage)
	r.Delete("/profile/cover-image", handler.DeleteCoverImage)
	r.Post("/profile/update", handler.UpdateProfile)
}

// Me returns the current authenticated user.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	writeData(w, http.StatusOK, user, "Current user fetched successfully")
}

func (h *ProfileHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.users.UpdateAvatar, "Avatar updated successfully")
}

func (h *ProfileHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.users.UpdateCoverImage, "Cover image updated successfully")
}

func (h *ProfileHandler) DeleteCoverImage(w http.ResponseWriter, r *http.Request) {
	current, _ := userFromContext(r.Context())
	user, err := h.users.DeleteCoverImage(r.Context(), current.ID)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, user, "Cover image deleted successfully")
}

type imageUpdate func(ctx context.Context, id string, file storage.File) (types.User, error)

func (h *ProfileHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, update imageUpdate, message string) {
	cleanup, err := parseMultipart(r)
	defer cleanup()
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	file, err := imageFile(r, field, h.maxUpload)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	if file == nil {
		writeError(w, http.StatusBadRequest, field+" file is missing")
		return
	}

	current, _ := userFromContext(r.Context())
	user, err := update(r.Context(), current.ID, *file)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, user, message)
}

// UpdateProfile applies a partial profile update from a multipart or JSON
// body. Multipart bodies may carry a resume in the file field.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var (
		req      ProfileRequest
		sections map[string]string
		resume   *storage.File
	)

	if isMultipart(r) {
		cleanup, err := parseMultipart(r)
		defer cleanup()
		if err != nil {
			writeFailure(w, r, h.logger, err)
			return
		}
		sections = req.fromForm(r.MultipartForm.Value)
		if resume, err = formFile(r, "file", h.maxUpload); err != nil {
			writeFailure(w, r, h.logger, err)
			return
		}
	} else {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
		if err != nil {
			writeFailure(w, r, h.logger, err)
			return
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		sections = sectionsFromJSON(raw)
	}

	req.Email = strings.TrimSpace(req.Email)
	if err := h.validator.Struct(req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	current, _ := userFromContext(r.Context())
	user, err := h.users.UpdateProfile(r.Context(), current.ID, services.ProfileInput{
		FullName:    req.FullName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Bio:         req.Bio,
		Skills:      strings.Join(req.Skills, ","),
		Sections:    sections,
		Resume:      resume,
	})
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, user, "Profile updated successfully")
}
