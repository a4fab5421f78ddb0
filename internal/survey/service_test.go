package survey

import (
	"context"
	"testing"
	"time"

	"github.com/nextstep-care/platform/internal/client"
	"github.com/nextstep-care/platform/internal/notification"
)

type fakeSource struct {
	responses []FormResponse
	gotSince  time.Time
}

func (f *fakeSource) ResponsesSince(ctx context.Context, since time.Time) ([]FormResponse, error) {
	f.gotSince = since
	return f.responses, nil
}

func newTestStore(t *testing.T) (client.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := client.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return store, dir
}

func addClient(t *testing.T, store client.Store, email string) client.Record {
	t.Helper()
	rec := client.Record{
		"firstName":   "Jordan",
		"lastName":    "Reyes",
		"dateOfBirth": "1990-01-01",
		"phoneNumber": "555-0100",
		"email":       email,
	}
	if err := client.Validate(rec, time.Now().UTC()); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	saved, err := store.Add(context.Background(), rec)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return saved
}

func startedNotifier(t *testing.T) (*notification.Service, *notification.MockEmailProvider) {
	t.Helper()
	email := notification.NewMockEmailProvider()
	svc := notification.NewService(email, notification.NewMockSMSProvider(), notification.ServiceConfig{
		Workers:       1,
		BufferSize:    10,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("notifier Start failed: %v", err)
	}
	t.Cleanup(func() { svc.Stop() })
	return svc, email
}

func TestSendAssessmentMarksRecordSent(t *testing.T) {
	store, dir := newTestStore(t)
	rec := addClient(t, store, "jordan@example.com")
	notifier, emailProvider := startedNotifier(t)

	svc := NewService(store, notifier, nil, nil, "https://forms.example.com/intake", dir)

	result, err := svc.SendAssessment(context.Background(), rec.ID())
	if err != nil {
		t.Fatalf("SendAssessment failed: %v", err)
	}
	if result.Email != "jordan@example.com" {
		t.Errorf("email = %q", result.Email)
	}
	if result.FormURL != "https://forms.example.com/intake" {
		t.Errorf("form url = %q", result.FormURL)
	}

	updated, err := store.Get(context.Background(), rec.ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	assessment, _ := updated["needsAssessment"].(map[string]any)
	if assessment["status"] != "sent" {
		t.Errorf("status = %v, want sent", assessment["status"])
	}
	if sent, _ := assessment["lastSent"].(string); sent == "" {
		t.Error("lastSent not recorded")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(emailProvider.GetSentNotifications()) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("form email never delivered")
}

func TestSendAssessmentRequiresEmail(t *testing.T) {
	store, dir := newTestStore(t)
	rec := addClient(t, store, "")
	notifier, _ := startedNotifier(t)

	svc := NewService(store, notifier, nil, nil, "https://forms.example.com/intake", dir)
	if _, err := svc.SendAssessment(context.Background(), rec.ID()); err == nil {
		t.Error("expected error for client without email")
	}
}

func TestProcessResponsesUpdatesClient(t *testing.T) {
	store, dir := newTestStore(t)
	rec := addClient(t, store, "jordan@example.com")
	notifier, _ := startedNotifier(t)

	source := &fakeSource{responses: []FormResponse{{
		Timestamp:    time.Now(),
		RawTimestamp: "1/15/2026 10:30:00",
		ClientEmail:  "Jordan@Example.com",
		ClientName:   "Jordan Reyes",
		Needs: map[string]NeedDetail{
			"housing":        {Needed: true, Priority: "high", Details: "Emergency - need help today"},
			"food":           {Needed: true, Priority: "medium", Details: "Within the next month"},
			"transportation": {Needed: false, Priority: "medium"},
		},
	}}}

	svc := NewService(store, notifier, source, nil, "https://forms.example.com/intake", dir)

	processed, total, err := svc.ProcessResponses(context.Background())
	if err != nil {
		t.Fatalf("ProcessResponses failed: %v", err)
	}
	if processed != 1 || total != 1 {
		t.Errorf("processed = %d, total = %d, want 1, 1", processed, total)
	}

	updated, err := store.Get(context.Background(), rec.ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	assessment, _ := updated["needsAssessment"].(map[string]any)
	if assessment["status"] != "completed" {
		t.Errorf("status = %v, want completed", assessment["status"])
	}

	currentNeeds, _ := assessment["currentNeeds"].(map[string]any)
	if len(currentNeeds) != 2 {
		t.Errorf("current needs = %v, want housing and food only", currentNeeds)
	}
	if _, ok := currentNeeds["transportation"]; ok {
		t.Error("unneeded category should not appear in current needs")
	}

	responses, _ := assessment["responses"].([]any)
	if len(responses) != 1 {
		t.Errorf("responses = %d, want 1", len(responses))
	}
}

func TestProcessResponsesSkipsUnknownEmail(t *testing.T) {
	store, dir := newTestStore(t)
	addClient(t, store, "jordan@example.com")

	source := &fakeSource{responses: []FormResponse{{
		Timestamp:   time.Now(),
		ClientEmail: "stranger@example.com",
	}}}
	svc := NewService(store, nil, source, nil, "", dir)

	processed, total, err := svc.ProcessResponses(context.Background())
	if err != nil {
		t.Fatalf("ProcessResponses failed: %v", err)
	}
	if processed != 0 || total != 1 {
		t.Errorf("processed = %d, total = %d, want 0, 1", processed, total)
	}
}

func TestProcessResponsesAdvancesCheckpoint(t *testing.T) {
	store, dir := newTestStore(t)
	source := &fakeSource{}
	svc := NewService(store, nil, source, nil, "", dir)

	if _, _, err := svc.ProcessResponses(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	firstSince := source.gotSince

	if _, _, err := svc.ProcessResponses(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !source.gotSince.After(firstSince) {
		t.Errorf("checkpoint did not advance: %v -> %v", firstSince, source.gotSince)
	}
}

func TestDashboardSummary(t *testing.T) {
	store, dir := newTestStore(t)
	rec := addClient(t, store, "jordan@example.com")

	rec["needsAssessment"] = map[string]any{
		"status":        "completed",
		"lastCompleted": "2026-02-01T10:00:00Z",
		"currentNeeds": map[string]any{
			"housing": map[string]any{"needed": true, "priority": "high"},
			"food":    map[string]any{"needed": true, "priority": "medium"},
		},
	}
	if err := store.Update(context.Background(), rec); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	addClient(t, store, "other@example.com")

	svc := NewService(store, nil, nil, nil, "", dir)
	summary, err := svc.DashboardSummary(context.Background())
	if err != nil {
		t.Fatalf("DashboardSummary failed: %v", err)
	}

	if summary["total_clients"] != 2 {
		t.Errorf("total clients = %v", summary["total_clients"])
	}
	statuses := summary["assessment_status"].(map[string]int)
	if statuses["completed"] != 1 || statuses["pending"] != 1 {
		t.Errorf("statuses = %v", statuses)
	}
	topNeeds := summary["top_needs"].(map[string]int)
	if topNeeds["housing"] != 1 || topNeeds["food"] != 1 {
		t.Errorf("top needs = %v", topNeeds)
	}
	byPriority := summary["needs_by_priority"].(map[string]int)
	if byPriority["high"] != 1 || byPriority["medium"] != 1 {
		t.Errorf("priorities = %v", byPriority)
	}
}
