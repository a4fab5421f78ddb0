package assistant

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nextstep-care/platform/internal/shared/errors"
)

// Handler provides HTTP handlers for the assistant module
type Handler struct {
	service *Service
}

// NewHandler creates a new assistant handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the assistant routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/chat-followup", h.ChatFollowUp)
	r.Post("/chat/help", h.HelpChat)
	r.Post("/translate", h.Translate)
	return r
}

// ChatFollowUp answers a follow-up question about recommendations.
func (h *Handler) ChatFollowUp(w http.ResponseWriter, r *http.Request) {
	var req FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if req.Message == "" {
		writeError(w, errors.BadRequest("message is required"))
		return
	}
	if req.ResourceType == "" {
		req.ResourceType = "housing"
	}

	response, err := h.service.FollowUp(r.Context(), req)
	if err != nil {
		writeError(w, errors.Collaborator("assistant", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"response": response,
		"message":  "Response generated successfully",
	})
}

type helpRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

// HelpChat answers questions about using the platform.
func (h *Handler) HelpChat(w http.ResponseWriter, r *http.Request) {
	var req helpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if req.Message == "" {
		writeError(w, errors.BadRequest("message is required"))
		return
	}
	if req.Context == "" {
		req.Context = "help_chatbot"
	}

	response, err := h.service.Help(r.Context(), req.Message)
	if err != nil {
		writeError(w, errors.Collaborator("assistant", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"response": response,
		"context":  req.Context,
	})
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

// Translate renders text into the target language.
func (h *Handler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if req.Text == "" {
		writeError(w, errors.BadRequest("text is required"))
		return
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = "Spanish"
	}

	translated, err := h.service.Translate(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		writeError(w, errors.Collaborator("assistant", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"original":        req.Text,
		"translated":      translated,
		"target_language": req.TargetLanguage,
		"success":         true,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("assistant: failed to encode response: %v", err)
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
