package referral

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nextstep-care/platform/internal/notification"
)

func newNotifier(t *testing.T) (*notification.Service, *notification.MockEmailProvider) {
	t.Helper()
	email := notification.NewMockEmailProvider()
	svc := notification.NewService(email, notification.NewMockSMSProvider(), notification.ServiceConfig{
		Workers:       1,
		BufferSize:    10,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { svc.Stop() })
	return svc, email
}

func TestSendReferral(t *testing.T) {
	notifier, email := newNotifier(t)
	svc := NewService(notifier, nil)

	id, err := svc.Send(context.Background(), Referral{
		ResourceName:   "Emergency Shelter",
		Organization:   "City Shelter Network",
		RecipientEmail: "intake@shelter.example.com",
		SenderName:     "Alex Kim",
		SenderEmail:    "alex@nextstep.example.com",
		ClientName:     "Jordan Reyes",
		Message:        "Client needs a bed tonight.",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !strings.HasPrefix(id, "ref_") {
		t.Errorf("referral id = %q", id)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		sent := email.GetSentNotifications()
		if len(sent) == 1 {
			if sent[0].Email != "intake@shelter.example.com" {
				t.Errorf("recipient = %q", sent[0].Email)
			}
			if !strings.Contains(sent[0].Body, "Jordan Reyes") {
				t.Errorf("body missing client name: %q", sent[0].Body)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("referral email never delivered")
}

func TestSendReferralValidation(t *testing.T) {
	notifier, _ := newNotifier(t)
	svc := NewService(notifier, nil)

	if _, err := svc.Send(context.Background(), Referral{ResourceName: "Shelter"}); err == nil {
		t.Error("expected error without recipient email")
	}
	if _, err := svc.Send(context.Background(), Referral{RecipientEmail: "a@b.example"}); err == nil {
		t.Error("expected error without resource name")
	}
}
