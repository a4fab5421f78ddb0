package survey

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nextstep-care/platform/internal/client"
	"github.com/nextstep-care/platform/internal/notification"
	"github.com/nextstep-care/platform/internal/shared/errors"
	"github.com/nextstep-care/platform/internal/shared/events"
	"github.com/nextstep-care/platform/internal/shared/metrics"
)

// checkpointFile remembers when responses were last pulled so restarts
// do not reprocess the whole sheet.
const checkpointFile = "last_form_check.json"

// Service owns the needs-assessment lifecycle for client records.
type Service struct {
	store    client.Store
	notifier *notification.Service
	source   FormSource
	bus      events.EventBus

	formURL string
	dataDir string
	now     func() time.Time
}

// NewService wires the survey pipeline. notifier, source, and bus are
// optional; operations needing a missing collaborator report it.
func NewService(store client.Store, notifier *notification.Service, source FormSource, bus events.EventBus, formURL, dataDir string) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		source:   source,
		bus:      bus,
		formURL:  formURL,
		dataDir:  dataDir,
		now:      time.Now,
	}
}

// SendResult reports a dispatched assessment form.
type SendResult struct {
	ClientID int    `json:"client_id"`
	Email    string `json:"email"`
	FormURL  string `json:"form_url"`
}

// SendAssessment emails the assessment form to the client and marks the
// record as sent.
func (s *Service) SendAssessment(ctx context.Context, clientID int) (*SendResult, error) {
	if s.notifier == nil {
		return nil, errors.Collaborator("email service", fmt.Errorf("not configured"))
	}

	rec, err := s.store.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	email := rec.Email()
	if email == "" {
		return nil, errors.BadRequest("client email not found")
	}

	notif := &notification.Notification{
		Type:          notification.TypeEmail,
		Priority:      notification.PriorityNormal,
		RecipientName: rec.FullName(),
		Email:         email,
		Subject:       "NextStep Needs Assessment",
		Body: fmt.Sprintf(
			"Hello %s,\n\nPlease complete your needs assessment so we can connect you "+
				"with the right resources:\n\n%s\n\nThank you,\nYour NextStep care team",
			rec.FullName(), s.formURL),
	}
	if err := s.notifier.Send(ctx, notif); err != nil {
		return nil, errors.Collaborator("email service", err)
	}

	now := s.now().UTC().Format(time.RFC3339)
	assessment := assessmentSection(rec)
	assessment["status"] = "sent"
	assessment["lastSent"] = now
	assessment["formUrl"] = s.formURL
	rec["needsAssessment"] = assessment
	rec.Touch(s.now().UTC())

	if err := s.store.Update(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "failed to update client record")
	}

	return &SendResult{ClientID: clientID, Email: email, FormURL: s.formURL}, nil
}

// Status returns a client's assessment state.
func (s *Service) Status(ctx context.Context, clientID int) (map[string]any, error) {
	rec, err := s.store.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"client_id":        clientID,
		"client_name":      rec.FullName(),
		"needs_assessment": assessmentSection(rec),
	}, nil
}

// ProcessResponses pulls new form responses and folds each into its
// client record, matched by email. Returns processed and total counts.
func (s *Service) ProcessResponses(ctx context.Context) (int, int, error) {
	if s.source == nil {
		return 0, 0, errors.Collaborator("form source", fmt.Errorf("not configured"))
	}

	since := s.loadCheckpoint()
	responses, err := s.source.ResponsesSince(ctx, since)
	if err != nil {
		return 0, 0, errors.Collaborator("form source", err)
	}

	processed := 0
	for _, response := range responses {
		email := strings.ToLower(strings.TrimSpace(response.ClientEmail))
		if email == "" {
			continue
		}

		rec, err := s.store.GetByEmail(ctx, email)
		if err != nil {
			log.Printf("survey: no client for response from %s", email)
			continue
		}

		if err := s.applyResponse(ctx, rec, response); err != nil {
			log.Printf("survey: failed to apply response for %s: %v", email, err)
			continue
		}
		processed++
		metrics.RecordSurveyProcessed()
	}

	s.saveCheckpoint(s.now())
	return processed, len(responses), nil
}

func (s *Service) applyResponse(ctx context.Context, rec client.Record, response FormResponse) error {
	now := s.now().UTC().Format(time.RFC3339)

	assessment := assessmentSection(rec)
	assessment["status"] = "completed"
	assessment["lastCompleted"] = now

	responseMap, err := toMap(response)
	if err != nil {
		return err
	}
	responses, _ := assessment["responses"].([]any)
	assessment["responses"] = append(responses, responseMap)

	currentNeeds := map[string]any{}
	for category, detail := range response.Needs {
		if !detail.Needed {
			continue
		}
		currentNeeds[category] = map[string]any{
			"needed":   true,
			"priority": detail.Priority,
			"details":  detail.Details,
			"updated":  now,
		}
	}
	assessment["currentNeeds"] = currentNeeds
	rec["needsAssessment"] = assessment
	rec.Touch(s.now().UTC())

	if err := s.store.Update(ctx, rec); err != nil {
		return err
	}

	if s.notifier != nil {
		staff := &notification.Notification{
			Type:    notification.TypeEmail,
			Subject: "Needs assessment completed: " + rec.FullName(),
			Body: fmt.Sprintf("%s has completed their needs assessment. %d need categories reported.",
				rec.FullName(), len(currentNeeds)),
			Email: staffInboxFor(rec),
		}
		if staff.Email != "" {
			if err := s.notifier.Send(ctx, staff); err != nil {
				log.Printf("survey: staff notification failed: %v", err)
			}
		}
	}

	if s.bus != nil {
		event := events.NewEvent(events.TypeSurveyReceived, "survey", map[string]any{
			"client_id":   rec.ID(),
			"needs_count": len(currentNeeds),
		})
		if err := s.bus.Publish(ctx, event); err != nil {
			log.Printf("survey: failed to publish %s: %v", event.Type, err)
		}
	}
	return nil
}

// DashboardSummary rolls assessment state up across all clients.
func (s *Service) DashboardSummary(ctx context.Context) (map[string]any, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list clients")
	}

	statusCounts := map[string]int{"pending": 0, "sent": 0, "completed": 0}
	topNeeds := map[string]int{}
	byPriority := map[string]int{"high": 0, "medium": 0, "low": 0}
	type completion struct {
		ClientID      int    `json:"client_id"`
		ClientName    string `json:"client_name"`
		CompletedDate string `json:"completed_date"`
		NeedsCount    int    `json:"needs_count"`
	}
	var completions []completion

	for _, rec := range records {
		assessment := assessmentSection(rec)
		status, _ := assessment["status"].(string)
		if status == "" {
			status = "pending"
		}
		if _, ok := statusCounts[status]; ok {
			statusCounts[status]++
		}

		currentNeeds, _ := assessment["currentNeeds"].(map[string]any)
		needsCount := 0
		for category, raw := range currentNeeds {
			detail, _ := raw.(map[string]any)
			if needed, _ := detail["needed"].(bool); !needed {
				continue
			}
			needsCount++
			topNeeds[category]++
			priority, _ := detail["priority"].(string)
			if priority == "" {
				priority = "medium"
			}
			if _, ok := byPriority[priority]; ok {
				byPriority[priority]++
			}
		}

		if completed, _ := assessment["lastCompleted"].(string); status == "completed" && completed != "" {
			completions = append(completions, completion{
				ClientID:      rec.ID(),
				ClientName:    rec.FullName(),
				CompletedDate: completed,
				NeedsCount:    needsCount,
			})
		}
	}

	// Most recent completions first; RFC3339 sorts lexically.
	for i := 0; i < len(completions); i++ {
		for j := i + 1; j < len(completions); j++ {
			if completions[j].CompletedDate > completions[i].CompletedDate {
				completions[i], completions[j] = completions[j], completions[i]
			}
		}
	}
	if len(completions) > 5 {
		completions = completions[:5]
	}

	return map[string]any{
		"total_clients":      len(records),
		"assessment_status":  statusCounts,
		"recent_completions": completions,
		"top_needs":          topNeeds,
		"needs_by_priority":  byPriority,
	}, nil
}

func (s *Service) loadCheckpoint() time.Time {
	fallback := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	data, err := os.ReadFile(filepath.Join(s.dataDir, checkpointFile))
	if err != nil {
		return fallback
	}
	var doc struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fallback
	}
	ts, err := time.Parse(time.RFC3339, doc.Timestamp)
	if err != nil {
		return fallback
	}
	return ts
}

func (s *Service) saveCheckpoint(ts time.Time) {
	doc := map[string]string{"timestamp": ts.UTC().Format(time.RFC3339)}
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, checkpointFile), data, 0o644); err != nil {
		log.Printf("survey: failed to save checkpoint: %v", err)
	}
}

func assessmentSection(rec client.Record) map[string]any {
	if section, ok := rec["needsAssessment"].(map[string]any); ok {
		return section
	}
	return map[string]any{
		"status":        "pending",
		"lastSent":      nil,
		"lastCompleted": nil,
		"responses":     []any{},
		"currentNeeds":  map[string]any{},
	}
}

// staffInboxFor picks the staff notification address. The assigned
// worker's email lives on the record when case assignment has run.
func staffInboxFor(rec client.Record) string {
	if worker, ok := rec["assignedWorkerEmail"].(string); ok {
		return worker
	}
	return os.Getenv("STAFF_NOTIFICATION_EMAIL")
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
