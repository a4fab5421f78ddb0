// Package referral sends resource referrals on behalf of case workers.
// The original flow stubbed delivery; here the referral rides the
// notification pipeline as a real email.
package referral

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nextstep-care/platform/internal/notification"
	"github.com/nextstep-care/platform/internal/shared/errors"
	"github.com/nextstep-care/platform/internal/shared/events"
)

// Referral is one outbound referral request.
type Referral struct {
	ResourceName   string `json:"resourceName"`
	Organization   string `json:"organization"`
	RecipientEmail string `json:"recipientEmail"`
	RecipientName  string `json:"recipientName"`
	SenderEmail    string `json:"senderEmail"`
	SenderName     string `json:"senderName"`
	ClientName     string `json:"clientName"`
	Message        string `json:"message"`
}

// Service dispatches referrals through the notification pipeline.
type Service struct {
	notifier *notification.Service
	bus      events.EventBus
	now      func() time.Time
}

func NewService(notifier *notification.Service, bus events.EventBus) *Service {
	return &Service{notifier: notifier, bus: bus, now: time.Now}
}

// Send queues the referral email and returns its generated ID.
func (s *Service) Send(ctx context.Context, ref Referral) (string, error) {
	if ref.RecipientEmail == "" {
		return "", errors.BadRequest("recipient email is required")
	}
	if ref.ResourceName == "" {
		return "", errors.BadRequest("resource name is required")
	}
	if s.notifier == nil {
		return "", errors.Collaborator("email service", fmt.Errorf("not configured"))
	}

	referralID := "ref_" + s.now().Format("20060102_150405")

	body := fmt.Sprintf(
		"A referral has been made for %s (%s).\n\nClient: %s\nReferred by: %s <%s>\n\n%s",
		ref.ResourceName, ref.Organization, ref.ClientName, ref.SenderName, ref.SenderEmail, ref.Message)

	notif := &notification.Notification{
		Type:          notification.TypeEmail,
		Priority:      notification.PriorityHigh,
		RecipientName: ref.RecipientName,
		Email:         ref.RecipientEmail,
		Subject:       "Referral: " + ref.ResourceName,
		Body:          body,
		CorrelationID: referralID,
	}
	if err := s.notifier.Send(ctx, notif); err != nil {
		return "", errors.Collaborator("email service", err)
	}

	if s.bus != nil {
		event := events.NewEvent(events.TypeReferralSent, "referral", map[string]any{
			"referral_id":   referralID,
			"resource_name": ref.ResourceName,
			"recipient":     ref.RecipientEmail,
		})
		if err := s.bus.Publish(ctx, event); err != nil {
			log.Printf("referral: failed to publish %s: %v", event.Type, err)
		}
	}

	return referralID, nil
}
