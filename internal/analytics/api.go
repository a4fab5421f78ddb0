package analytics

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nextstep-care/platform/internal/shared/errors"
)

// Handler provides HTTP handlers for the analytics endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a new analytics handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the analytics routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/risk-assessment/{clientID}", h.ClientAssessment)
	r.Get("/risk-assessments", h.AllAssessments)
	r.Get("/resource-trends", h.ResourceTrends)
	r.Get("/comprehensive-stats", h.ComprehensiveStats)
	r.Get("/dashboard-summary", h.Dashboard)
	return r
}

func (h *Handler) ClientAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, errors.BadRequest("client id must be an integer"))
		return
	}

	assessment, err := h.service.ClientAssessment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (h *Handler) AllAssessments(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.AllAssessments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ResourceTrends(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			writeError(w, errors.BadRequest("days must be an integer between 1 and 365"))
			return
		}
		days = parsed
	}

	report, err := h.service.ResourceTrends(r.Context(), days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) ComprehensiveStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ComprehensiveStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ResourceStatus serves the dashboard activity feed. It is mounted
// outside the analytics subtree, next to the other dashboard routes.
func (h *Handler) ResourceStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ResourceStatus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("analytics: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		writeJSON(w, appErr.HTTPStatus, map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error": "internal server error",
		"code":  "INTERNAL",
	})
}
