package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/types"
)

// JobHandler provides HTTP handlers for job postings.
type JobHandler struct {
	jobs   *services.JobService
	logger *slog.Logger
}

func NewJobHandler(jobs *services.JobService, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger}
}

// JobRouter registers job routes. Listing and reading jobs is public.
func JobRouter(r chi.Router, handler *JobHandler, gate *Gate) {
	r.Get("/get", handler.ListJobs)
	r.Get("/get/{id}", handler.GetJob)

	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAuth, gate.RequireRole(types.RoleRecruiter))
		r.Post("/post", handler.PostJob)
		r.Get("/getadminjobs", handler.ListAdminJobs)
		r.Put("/update/{id}", handler.UpdateJob)
		r.Delete("/delete/{id}", handler.DeleteJob)
	})
}

func (h *JobHandler) PostJob(w http.ResponseWriter, r *http.Request) {
	input, err := h.readInput(w, r)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	user, _ := userFromContext(r.Context())
	job, err := h.jobs.Post(r.Context(), user.ID, input)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, job, "New job created successfully")
}

// ListJobs returns all jobs matching the optional keyword query parameter.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	jobs, err := h.jobs.List(r.Context(), keyword)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, jobs, "Jobs fetched successfully")
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, job, "Job fetched successfully")
}

func (h *JobHandler) ListAdminJobs(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	jobs, err := h.jobs.ListByCreator(r.Context(), user.ID)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, jobs, "Jobs fetched successfully")
}

func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	input, err := h.readInput(w, r)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}

	user, _ := userFromContext(r.Context())
	job, err := h.jobs.Update(r.Context(), user.ID, chi.URLParam(r, "id"), input)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, job, "Job updated successfully")
}

func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	job, err := h.jobs.Delete(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, job, "Job deleted successfully")
}

func (h *JobHandler) readInput(w http.ResponseWriter, r *http.Request) (services.JobInput, error) {
	var req JobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return services.JobInput{}, err
	}

	salary, err := req.salary()
	if err != nil {
		return services.JobInput{}, err
	}
	position, err := req.position()
	if err != nil {
		return services.JobInput{}, err
	}

	return services.JobInput{
		Title:        req.Title,
		Description:  req.Description,
		Requirements: req.Requirements,
		Salary:       salary,
		Location:     req.Location,
		JobType:      req.JobType,
		Experience:   req.Experience,
		Position:     position,
		CompanyID:    req.CompanyID,
	}, nil
}
