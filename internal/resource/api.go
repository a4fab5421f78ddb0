package resource

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nextstep-care/platform/internal/shared/errors"
)

// Handler provides HTTP handlers for the resource directory
type Handler struct {
	store Store
}

// NewHandler creates a new resource handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Routes registers the resource routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListResources)
	r.Get("/categories", h.ListCategories)
	r.Put("/{name}", h.UpdateResource)

	return r
}

// ListResources returns the full directory.
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to load resources"))
		return
	}
	if records == nil {
		records = []Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": records})
}

// ListCategories returns the recognized category tags.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": Categories})
}

// UpdateResource replaces a directory entry by display name.
func (h *Handler) UpdateResource(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	updated, err := h.store.UpdateByName(r.Context(), name, rec)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Resource updated successfully",
		"resource": updated,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
