package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jobfinder/apiserver/internal/services"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
	logger    *slog.Logger
}

func NewDashboardHandler(dashboard *services.DashboardService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// DashboardRouter registers dashboard routes. Site-wide statistics are public.
func DashboardRouter(r chi.Router, handler *DashboardHandler, gate *Gate) {
	r.Get("/global-stats", handler.GlobalStats)

	r.Group(func(r chi.Router) {
		r.Use(gate.RequireAuth)
		r.Get("/stats", handler.Stats)
		r.Get("/trends", handler.Trends)
		r.Get("/skills", handler.Skills)
	})
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	stats, err := h.dashboard.Stats(r.Context(), user.ID)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, stats, "User stats fetched successfully")
}

func (h *DashboardHandler) Trends(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	trends, err := h.dashboard.Trends(r.Context(), user.ID)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, trends, "Application trends fetched successfully")
}

func (h *DashboardHandler) Skills(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	skills, err := h.dashboard.Skills(r.Context(), user.ID)
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, skills, "Skills fetched successfully")
}

func (h *DashboardHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.GlobalStats(r.Context())
	if err != nil {
		writeFailure(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, stats, "Global stats fetched successfully")
}
