package referral

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nextstep-care/platform/internal/shared/errors"
)

// Handler provides HTTP handlers for referrals
type Handler struct {
	service *Service
}

// NewHandler creates a new referral handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the referral routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.SendReferral)
	return r
}

// SendReferral queues a referral email.
func (h *Handler) SendReferral(w http.ResponseWriter, r *http.Request) {
	var ref Referral
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	referralID, err := h.service.Send(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Referral sent successfully",
		"referral_id": referralID,
		"status":      "sent",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("referral: failed to encode response: %v", err)
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
