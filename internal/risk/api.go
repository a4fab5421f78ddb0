package risk

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nextstep-care/platform/internal/client"
	"github.com/nextstep-care/platform/internal/shared/errors"
	"github.com/nextstep-care/platform/internal/shared/events"
	"github.com/nextstep-care/platform/internal/shared/metrics"
)

// Handler provides HTTP handlers for risk assessment
type Handler struct {
	store  client.Store
	engine *Engine
	bus    events.EventBus
}

// NewHandler creates a new risk handler
func NewHandler(store client.Store, engine *Engine, bus events.EventBus) *Handler {
	return &Handler{store: store, engine: engine, bus: bus}
}

// Routes registers the risk routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{clientID}", h.AssessClient)
	r.Post("/preview", h.AssessPreview)
	return r
}

// AssessClient scores a stored client record.
func (h *Handler) AssessClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, errors.BadRequest("client id must be an integer"))
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	assessment, err := h.engine.Assess(id, rec)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordAssessment(string(assessment.RiskLevel))
	h.publish(r.Context(), assessment)

	writeJSON(w, http.StatusOK, assessment)
}

// AssessPreview scores a profile without persisting it, for intake
// screens that want a live estimate before the record is saved.
func (h *Handler) AssessPreview(w http.ResponseWriter, r *http.Request) {
	var rec map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	assessment, err := h.engine.Assess(0, rec)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}

func (h *Handler) publish(ctx context.Context, a *Assessment) {
	if h.bus == nil {
		return
	}
	event := events.NewEvent(events.TypeAssessmentComputed, "risk", map[string]any{
		"client_id":       a.ClientID,
		"risk_percentage": a.RiskPercentage,
		"risk_level":      a.RiskLevel,
		"calculated_at":   a.CalculatedAt.Format(time.RFC3339),
	})
	if err := h.bus.Publish(ctx, event); err != nil {
		log.Printf("risk: failed to publish %s: %v", event.Type, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("risk: failed to encode response: %v", err)
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
