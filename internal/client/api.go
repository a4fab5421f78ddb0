package client

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nextstep-care/platform/internal/shared/errors"
	"github.com/nextstep-care/platform/internal/shared/events"
	"github.com/nextstep-care/platform/internal/shared/metrics"
)

// Handler provides HTTP handlers for the client module
type Handler struct {
	store Store
	bus   events.EventBus
}

// NewHandler creates a new client handler
func NewHandler(store Store, bus events.EventBus) *Handler {
	return &Handler{store: store, bus: bus}
}

// Routes registers the client routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateClient)
	r.Get("/recent", h.ListRecent)
	r.Get("/profile/{email}", h.GetProfileByEmail)
	r.Get("/email/{email}/resources", h.ListResourcesByEmail)

	r.Route("/{clientID}", func(r chi.Router) {
		r.Get("/", h.GetClient)
		r.Delete("/", h.DeleteClient)

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", h.ListClientResources)
			r.Post("/", h.AttachResource)
			r.Put("/{resourceID}/status", h.UpdateResourceStatus)
		})
	})

	return r
}

type attachResourceRequest struct {
	ID           string `json:"id"`
	ResourceName string `json:"resource_name"`
	Organization string `json:"organization"`
	ProgramType  string `json:"program_type"`
	Contact      string `json:"contact"`
	Services     string `json:"services"`
	Category     string `json:"category"`
	Notes        string `json:"notes"`
	AIReasoning  string `json:"ai_reasoning"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// CreateClient validates and stores a new client record.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	if err := Validate(rec, time.Now().UTC()); err != nil {
		writeError(w, err)
		return
	}

	rec, err := h.store.Add(r.Context(), rec)
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to save client"))
		return
	}

	metrics.RecordClientCreated()
	h.publish(r, events.TypeClientCreated, map[string]any{
		"client_id": rec.ID(),
		"name":      rec.FullName(),
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Client added successfully",
		"client":  rec,
	})
}

// ListRecent returns all clients, newest first, in the dashboard shape.
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, errors.Wrap(err, "failed to list clients"))
		return
	}

	formatted := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		assessment, _ := rec["needsAssessment"].(map[string]any)

		var needs []string
		if current, ok := assessment["currentNeeds"].(map[string]any); ok {
			for need, raw := range current {
				if details, ok := raw.(map[string]any); ok {
					if needed, _ := details["needed"].(bool); needed {
						needs = append(needs, need)
					}
				}
			}
		}

		status := "pending"
		if s, ok := assessment["status"].(string); ok && s != "" {
			status = s
		}

		formatted = append(formatted, map[string]any{
			"id":            rec.ID(),
			"firstName":     rec.FirstName(),
			"lastName":      rec.LastName(),
			"email":         rec.Email(),
			"phoneNumber":   rec.PhoneNumber(),
			"status":        status,
			"lastSent":      assessment["lastSent"],
			"lastCompleted": assessment["lastCompleted"],
			"needs":         needs,
			"createdAt":     rec.CreatedAt(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"clients": formatted})
}

// GetClient returns the full record for a client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetProfileByEmail returns the patient-app profile view of a client.
func (h *Handler) GetProfileByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	rec, err := h.store.GetByEmail(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	registration := "registered"
	if s, ok := rec["registrationStatus"].(string); ok && s != "" {
		registration = s
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                 rec.ID(),
		"email":              rec.Email(),
		"firstName":          rec.FirstName(),
		"lastName":           rec.LastName(),
		"registrationStatus": registration,
		"surveyHistory":      rec["surveyHistory"],
	})
}

// DeleteClient removes a client record.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	rec, err := h.store.Delete(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, events.TypeClientDeleted, map[string]any{"client_id": id})

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Client deleted successfully",
		"deleted_client": rec,
	})
}

// AttachResource adds a matched resource to the client's portfolio with
// pending status. Attaching the same resource twice is a no-op.
func (h *Handler) AttachResource(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	var req attachResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	for _, existing := range rec.Resources() {
		if existing["resource_id"] == req.ID {
			writeJSON(w, http.StatusOK, map[string]any{
				"message":  "Resource already exists for this client",
				"resource": existing,
			})
			return
		}
	}

	now := time.Now().UTC()
	category := req.Category
	if category == "" {
		category = "housing"
	}
	entry := AttachedResource{
		ResourceID:   req.ID,
		ResourceName: req.ResourceName,
		Organization: req.Organization,
		ProgramType:  req.ProgramType,
		Contact:      req.Contact,
		Services:     req.Services,
		Category:     category,
		Status:       string(StatusPending),
		AddedDate:    now.Format(time.RFC3339),
		LastUpdated:  now.Format(time.RFC3339),
		Notes:        req.Notes,
		AIReasoning:  req.AIReasoning,
	}

	raw, _ := rec["resources"].([]any)
	rec["resources"] = append(raw, toMap(entry))
	rec.Touch(now)

	if err := h.store.Update(r.Context(), rec); err != nil {
		writeError(w, errors.Wrap(err, "failed to save client"))
		return
	}

	h.publish(r, events.TypeClientUpdated, map[string]any{
		"client_id": id,
		"change":    "resource_attached",
		"resource":  entry.ResourceID,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Resource added to client successfully",
		"resource": entry,
	})
}

// UpdateResourceStatus moves an attached resource through its workflow.
func (h *Handler) UpdateResourceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}
	resourceID := chi.URLParam(r, "resourceID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body: "+err.Error()))
		return
	}
	if !IsValidStatus(req.Status) {
		writeError(w, errors.BadRequest("invalid status: "+req.Status))
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC()
	var updated map[string]any
	for _, res := range rec.Resources() {
		if res["resource_id"] == resourceID {
			res["status"] = req.Status
			res["last_updated"] = now.Format(time.RFC3339)
			if req.Notes != "" {
				res["notes"] = req.Notes
			}
			updated = res
			break
		}
	}
	if updated == nil {
		writeError(w, errors.NotFound("client resource", resourceID))
		return
	}

	rec.Touch(now)
	if err := h.store.Update(r.Context(), rec); err != nil {
		writeError(w, errors.Wrap(err, "failed to save client"))
		return
	}

	h.publish(r, events.TypeClientUpdated, map[string]any{
		"client_id": id,
		"change":    "resource_status",
		"resource":  resourceID,
		"status":    req.Status,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Resource status updated successfully",
		"resource": updated,
	})
}

// ListClientResources returns a client's resource portfolio.
func (h *Handler) ListClientResources(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"client_id":   id,
		"client_name": rec.FullName(),
		"resources":   resourcesOrEmpty(rec),
	})
}

// ListResourcesByEmail is the patient-app view of the portfolio.
func (h *Handler) ListResourcesByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	rec, err := h.store.GetByEmail(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}

	resources := resourcesOrEmpty(rec)
	writeJSON(w, http.StatusOK, map[string]any{
		"client_id":      rec.ID(),
		"client_name":    rec.FullName(),
		"email":          rec.Email(),
		"resources":      resources,
		"resource_count": len(resources),
	})
}

// --- Helpers ---

func (h *Handler) publish(r *http.Request, eventType string, data map[string]any) {
	if h.bus == nil {
		return
	}
	// Event delivery is best-effort; client writes never fail on bus errors.
	_ = h.bus.Publish(r.Context(), events.NewEvent(eventType, "client", data))
}

func clientID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "clientID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid client id"))
		return 0, false
	}
	return id, true
}

func resourcesOrEmpty(rec Record) []map[string]any {
	resources := rec.Resources()
	if resources == nil {
		return []map[string]any{}
	}
	return resources
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
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
