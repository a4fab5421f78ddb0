package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nextstep-care/platform/internal/shared/types"
)

// Event types published by the platform.
const (
	TypeClientCreated      = "client.created"
	TypeClientUpdated      = "client.updated"
	TypeClientDeleted      = "client.deleted"
	TypeAssessmentComputed = "assessment.computed"
	TypeMatchServed        = "match.served"
	TypeReferralSent       = "referral.sent"
	TypeSurveyReceived     = "survey.received"
)

// Event represents a domain event
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`

	// Actor information
	ActorID   types.ID `json:"actor_id,omitempty"`
	ActorType string   `json:"actor_type,omitempty"` // worker, client, system

	// Event data
	Data any `json:"data"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType, source string, data any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// WithActor sets the actor information on the event
func (e Event) WithActor(actorID types.ID, actorType string) Event {
	e.ActorID = actorID
	e.ActorType = actorType
	return e
}

// WithCorrelation sets the correlation ID for request tracing
func (e Event) WithCorrelation(correlationID string) Event {
	e.CorrelationID = correlationID
	return e
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// EventBus defines the interface for event publishing and subscription
type EventBus interface {
	// Publish publishes an event to the bus
	Publish(ctx context.Context, event Event) error

	// Subscribe delivers events whose type matches the prefix to handler
	Subscribe(ctx context.Context, typePrefix string, consumerName string, handler Handler) error

	// Close closes the event bus connection
	Close()

	// Health checks the event bus connection
	Health() error
}

// NoopBus discards events; used when event streaming is not configured.
type NoopBus struct{}

func (NoopBus) Publish(ctx context.Context, event Event) error { return nil }
func (NoopBus) Subscribe(ctx context.Context, typePrefix, consumerName string, handler Handler) error {
	return nil
}
func (NoopBus) Close()        {}
func (NoopBus) Health() error { return nil }

var _ EventBus = NoopBus{}
