package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nextstep-care/platform/internal/shared/events"
	"github.com/nextstep-care/platform/internal/shared/types"
)

// Subscriber listens to domain events and appends audit entries.
type Subscriber struct {
	repo Repository
	bus  events.EventBus
}

func NewSubscriber(repo Repository, bus events.EventBus) *Subscriber {
	return &Subscriber{repo: repo, bus: bus}
}

// Start subscribes to every audited event stream.
func (s *Subscriber) Start(ctx context.Context) error {
	patterns := []struct {
		pattern      string
		consumerName string
	}{
		{"client.", "audit-client-subscriber"},
		{"assessment.", "audit-assessment-subscriber"},
		{"match.", "audit-match-subscriber"},
		{"referral.", "audit-referral-subscriber"},
		{"survey.", "audit-survey-subscriber"},
	}

	for _, p := range patterns {
		if err := s.bus.Subscribe(ctx, p.pattern, p.consumerName, s.handleEvent); err != nil {
			return fmt.Errorf("subscribe to %s: %w", p.pattern, err)
		}
	}
	return nil
}

func (s *Subscriber) handleEvent(ctx context.Context, event events.Event) error {
	entry := entryFromEvent(event)
	if entry == nil {
		return nil
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// entryFromEvent maps a domain event onto an audit entry. The event
// type's first segment names the resource; the full type is the
// action. Events without a dotted type are not audited.
func entryFromEvent(event events.Event) *Entry {
	parts := strings.SplitN(event.Type, ".", 2)
	if len(parts) < 2 {
		return nil
	}
	resourceType := parts[0]

	actorType := ActorTypeSystem
	switch event.ActorType {
	case "worker":
		actorType = ActorTypeWorker
	case "client":
		actorType = ActorTypeClient
	}

	entry := &Entry{
		ID:            types.ID(event.ID),
		Timestamp:     event.Timestamp.UTC().Truncate(time.Microsecond),
		ActorType:     actorType,
		ActorID:       event.ActorID,
		Action:        event.Type,
		ResourceType:  resourceType,
		CorrelationID: event.CorrelationID,
	}

	if data, ok := event.Data.(map[string]any); ok {
		entry.Changes = data
		entry.ResourceID = resourceIDFrom(data, resourceType)
	}
	return entry
}

// resourceIDFrom looks for the conventional ID fields in event data.
func resourceIDFrom(data map[string]any, resourceType string) string {
	for _, field := range []string{resourceType + "_id", "client_id", "id"} {
		switch v := data[field].(type) {
		case string:
			return v
		case int:
			return fmt.Sprintf("%d", v)
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
