package notification

import (
	"context"
	"testing"
	"time"
)

func testService(email *MockEmailProvider, sms *MockSMSProvider) *Service {
	cfg := ServiceConfig{
		Workers:       2,
		BufferSize:    10,
		RetryAttempts: 2,
		RetryDelay:    10 * time.Millisecond,
	}
	return NewService(email, sms, cfg)
}

func waitFor(t *testing.T, deadline time.Duration, cond func() bool) {
	t.Helper()
	stop := time.Now().Add(deadline)
	for time.Now().Before(stop) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSendEmailDelivers(t *testing.T) {
	email := NewMockEmailProvider()
	svc := testService(email, NewMockSMSProvider())

	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	notif := &Notification{
		Type:    TypeEmail,
		Email:   "client@example.com",
		Subject: "Needs assessment",
		Body:    "Please complete your assessment.",
	}
	if err := svc.Send(ctx, notif); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		n, ok := svc.Get(notif.ID)
		return ok && n.Status == StatusSent
	})

	if got := len(email.GetSentNotifications()); got != 1 {
		t.Errorf("provider recorded %d sends, want 1", got)
	}

	stats := svc.GetStats()
	if stats.TotalSent != 1 || stats.TotalFailed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByType[TypeEmail] != 1 {
		t.Errorf("by type = %v", stats.ByType)
	}
}

func TestSendRetriesThenFails(t *testing.T) {
	email := NewMockEmailProvider()
	email.SetFailOnSend(true)
	svc := testService(email, NewMockSMSProvider())

	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	notif := &Notification{Type: TypeEmail, Email: "client@example.com"}
	if err := svc.Send(ctx, notif); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		n, ok := svc.Get(notif.ID)
		return ok && n.Status == StatusFailed
	})

	n, _ := svc.Get(notif.ID)
	if n.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", n.RetryCount)
	}
	if n.ErrorMessage == "" {
		t.Error("failed notification should record the error")
	}
	if svc.GetStats().TotalFailed != 1 {
		t.Errorf("stats = %+v", svc.GetStats())
	}
}

func TestSendSMSWithoutPhoneFails(t *testing.T) {
	sms := NewMockSMSProvider()
	svc := testService(NewMockEmailProvider(), sms)

	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	notif := &Notification{Type: TypeSMS, Body: "hello"}
	if err := svc.Send(ctx, notif); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		n, ok := svc.Get(notif.ID)
		return ok && n.Status == StatusFailed
	})

	if got := len(sms.GetSentNotifications()); got != 0 {
		t.Errorf("provider recorded %d sends, want 0", got)
	}
}

func TestSendDefaults(t *testing.T) {
	svc := testService(NewMockEmailProvider(), NewMockSMSProvider())

	notif := &Notification{Type: TypeEmail, Email: "a@example.com"}
	if err := svc.Send(context.Background(), notif); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if notif.ID == "" {
		t.Error("Send should assign an ID")
	}
	if notif.Priority != PriorityNormal {
		t.Errorf("priority = %q, want normal default", notif.Priority)
	}
	if notif.Status != StatusPending {
		t.Errorf("status = %q, want pending", notif.Status)
	}
}

func TestSendBufferFull(t *testing.T) {
	svc := NewService(NewMockEmailProvider(), NewMockSMSProvider(), ServiceConfig{
		Workers:       1,
		BufferSize:    1,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})
	// Service not started, so the single buffer slot fills immediately.

	first := &Notification{Type: TypeEmail, Email: "a@example.com"}
	if err := svc.Send(context.Background(), first); err != nil {
		t.Fatalf("first Send failed: %v", err)
	}

	second := &Notification{Type: TypeEmail, Email: "b@example.com"}
	if err := svc.Send(context.Background(), second); err == nil {
		t.Error("expected buffer-full error")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	svc := testService(NewMockEmailProvider(), NewMockSMSProvider())
	ctx := context.Background()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
