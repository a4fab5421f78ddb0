package survey

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nextstep-care/platform/internal/shared/errors"
)

// Handler provides HTTP handlers for the survey module
type Handler struct {
	service  *Service
	analyzer *Analyzer
}

// NewHandler creates a new survey handler
func NewHandler(service *Service, analyzer *Analyzer) *Handler {
	return &Handler{service: service, analyzer: analyzer}
}

// Routes registers the survey routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/{clientID}/send", h.SendAssessment)
	r.Get("/{clientID}/status", h.AssessmentStatus)
	r.Post("/analyze", h.AnalyzeSurvey)
	r.Post("/process-responses", h.ProcessResponses)
	r.Get("/dashboard", h.Dashboard)

	return r
}

// SendAssessment emails the assessment form to a client.
func (h *Handler) SendAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, errors.BadRequest("client id must be an integer"))
		return
	}

	result, err := h.service.SendAssessment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Needs assessment sent successfully",
		"client_id": result.ClientID,
		"email":     result.Email,
		"form_url":  result.FormURL,
	})
}

// AssessmentStatus reports a client's assessment state.
func (h *Handler) AssessmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, errors.BadRequest("client id must be an integer"))
		return
	}

	status, err := h.service.Status(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type analyzeRequest struct {
	SurveyData  map[string]any `json:"surveyData"`
	UserProfile map[string]any `json:"userProfile"`
}

// AnalyzeSurvey produces a structured analysis of raw survey answers.
func (h *Handler) AnalyzeSurvey(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	analysis := h.analyzer.Analyze(r.Context(), req.SurveyData, req.UserProfile)
	writeJSON(w, http.StatusOK, analysis)
}

// ProcessResponses pulls new form responses on demand.
func (h *Handler) ProcessResponses(w http.ResponseWriter, r *http.Request) {
	processed, total, err := h.service.ProcessResponses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Processed " + strconv.Itoa(processed) + " new form responses",
		"processed_count": processed,
		"total_responses": total,
	})
}

// Dashboard rolls assessment state up across all clients.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.DashboardSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("survey: failed to encode response: %v", err)
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
