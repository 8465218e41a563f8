package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/internal/validate"
	"github.com/jobfinder/apiserver/types"
)

// ApplicationHandler provides HTTP handlers for job applications.
type ApplicationHandler struct {
	applications *services.ApplicationService
	validator    *validate.Validator
	logger       *slog.Logger
}

func NewApplicationHandler(applications *services.ApplicationService, validator *validate.Validator, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, validator: validator, logger: logger}
}

// ApplicationRouter registers application routes. Every route requires
// authentication; reviewing applicants requires the recruiter role.
func ApplicationRouter(r chi.Router, handler *ApplicationHandler, gate *Gate) {
	r.Use(gate.RequireAuth)
	r.Post("/apply/{id}", handler.Apply)
	r.Get("/get", handler.ListApplied)

	recruiter := r.With(gate.RequireRole(types.RoleRecruiter))
	recruiter.Get("/{id}/applicants", handler.ListApplicants)
	recruiter.Post("/status/{id}/update", handler.UpdateStatus)
}

func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	application, err := h.applications.Apply(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, application, "Job applied successfully")
}

func (h *ApplicationHandler) ListApplied(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	applications, err := h.applications.Applied(r.Context(), user.ID)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, applications, "Applied jobs fetched successfully")
}

// ListApplicants returns the job with its applications and applicants.
func (h *ApplicationHandler) ListApplicants(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	job, err := h.applications.Applicants(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, job, "Applicants fetched successfully")
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	user, _ := userFromContext(r.Context())
	application, err := h.applications.UpdateStatus(r.Context(), user.ID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, application, "Status updated successfully")
}
