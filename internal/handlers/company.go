package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jobfinder/apiserver/internal/services"
	"github.com/jobfinder/apiserver/internal/validate"
	"github.com/jobfinder/apiserver/types"
)

// CompanyHandler provides HTTP handlers for companies.
type CompanyHandler struct {
	companies *services.CompanyService
	validator *validate.Validator
	maxUpload int64
	logger    *slog.Logger
}

// NewCompanyHandler constructs a handler with the provided service.
func NewCompanyHandler(companies *services.CompanyService, validator *validate.Validator, maxUpload int64, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, validator: validator, maxUpload: maxUpload, logger: logger}
}

// CompanyRouter registers company routes on the given router.
func CompanyRouter(r chi.Router, handler *CompanyHandler, gate *Gate) {
	r.Use(gate.RequireAuth)
	r.Get("/get", handler.ListCompanies)
	r.Get("/get/{id}", handler.GetCompany)

	recruiter := r.With(gate.RequireRole(types.RoleRecruiter))
	recruiter.Post("/register", handler.RegisterCompany)
	recruiter.Put("/update/{id}", handler.UpdateCompany)
}

func (h *CompanyHandler) RegisterCompany(w http.ResponseWriter, r *http.Request) {
	input, ok := h.readInput(w, r)
	if !ok {
		return
	}

	user, _ := userFromContext(r.Context())
	company, err := h.companies.Register(r.Context(), user.ID, input)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, company, "Company registered successfully")
}

func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	companies, err := h.companies.List(r.Context(), user.ID)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, companies, "Companies fetched successfully")
}

func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.companies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, company, "Company fetched successfully")
}

func (h *CompanyHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	input, ok := h.readInput(w, r)
	if !ok {
		return
	}

	user, _ := userFromContext(r.Context())
	company, err := h.companies.Update(r.Context(), user.ID, chi.URLParam(r, "id"), input)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, company, "Company information updated")
}

// readInput decodes a JSON or multipart company body. It writes the
// failure itself and reports false when the request cannot proceed.
func (h *CompanyHandler) readInput(w http.ResponseWriter, r *http.Request) (services.CompanyInput, bool) {
	var (
		req   CompanyRequest
		input services.CompanyInput
	)

	if isMultipart(r) {
		cleanup, err := parseMultipart(r)
		defer cleanup()
		if err != nil {
			writeFailure(w, r, h.logger, err)
			return input, false
		}
		req.fromForm(r.MultipartForm.Value)
		if input.Logo, err = imageFile(r, "logo", h.maxUpload); err != nil {
			writeFailure(w, r, h.logger, err)
			return input, false
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeFailure(w, r, h.logger, err)
		return input, false
	}

	if err := h.validator.Struct(req); err != nil {
		writeFailure(w, r, h.logger, err)
		return input, false
	}

	input.CompanyName = req.CompanyName
	input.Description = req.Description
	input.Website = req.Website
	input.Location = req.Location
	return input, true
}
