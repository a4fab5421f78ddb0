package matching

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nextstep-care/platform/internal/shared/errors"
	"github.com/nextstep-care/platform/internal/shared/events"
)

// Handler provides HTTP handlers for resource matching
type Handler struct {
	matcher *Matcher
	bus     events.EventBus
}

// NewHandler creates a new matching handler
func NewHandler(matcher *Matcher, bus events.EventBus) *Handler {
	return &Handler{matcher: matcher, bus: bus}
}

// Routes registers the matching routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.MatchResources)
	return r
}

type matchRequest struct {
	ClientData   map[string]any `json:"client_data"`
	ResourceType string         `json:"resource_type"`
}

// MatchResources runs the retrieval pipeline for one client and
// category and returns the shortlist with its justification.
func (h *Handler) MatchResources(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if len(req.ClientData) == 0 {
		writeError(w, errors.BadRequest("client data is required"))
		return
	}
	if req.ResourceType == "" {
		req.ResourceType = "housing"
	}

	result := h.matcher.Match(r.Context(), req.ClientData, req.ResourceType)

	if h.bus != nil {
		event := events.NewEvent(events.TypeMatchServed, "matching", map[string]any{
			"resource_type":  req.ResourceType,
			"shortlist_size": len(result.Shortlist),
			"degraded":       result.Degraded,
		})
		if err := h.bus.Publish(r.Context(), event); err != nil {
			log.Printf("matching: failed to publish %s: %v", event.Type, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Resources matched successfully",
		"recommendations": result,
		"resource_type":   req.ResourceType,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("matching: failed to encode response: %v", err)
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
