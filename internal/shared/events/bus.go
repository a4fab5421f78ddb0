package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/google/uuid"
	"github.com/nextstep-care/platform/internal/shared/config"
)

const esdbHealthTimeout = 5 * time.Second

// Bus provides event publishing and subscription using KurrentDB
type Bus struct {
	client *esdb.Client
	prefix string
}

// NewBus creates a new event bus connected to KurrentDB
func NewBus(ctx context.Context, cfg config.KurrentDBConfig) (*Bus, error) {
	settings, err := esdb.ParseConnectionString(buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	client, err := esdb.NewClient(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create KurrentDB client: %w", err)
	}

	return &Bus{
		client: client,
		prefix: "nextstep",
	}, nil
}

// buildConnectionString creates the esdb:// connection string
func buildConnectionString(cfg config.KurrentDBConfig) string {
	var auth string
	if cfg.Username != "" && cfg.Password != "" {
		auth = fmt.Sprintf("%s:%s@", cfg.Username, cfg.Password)
	}

	params := ""
	if cfg.Insecure {
		params = "?tls=false&tlsVerifyCert=false"
		params += "&keepAliveInterval=10000&keepAliveTimeout=10000&discoveryInterval=100&maxDiscoverAttempts=3&gossipTimeout=5"
	}

	return fmt.Sprintf("esdb://%s%s:%d%s", auth, cfg.Host, cfg.Port, params)
}

// Publish publishes an event to the bus
func (b *Bus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Stream name from event type: client.created -> nextstep-client-created
	stream := fmt.Sprintf("%s-%s", b.prefix, strings.ReplaceAll(event.Type, ".", "-"))

	eventID, err := uuid.Parse(event.ID)
	if err != nil {
		eventID = uuid.New()
	}

	esdbEvent := esdb.EventData{
		EventType:   event.Type,
		ContentType: esdb.ContentTypeJson,
		Data:        data,
		EventID:     eventID,
	}

	_, err = b.client.AppendToStream(ctx, stream, esdb.AppendToStreamOptions{
		ExpectedRevision: esdb.Any{},
	}, esdbEvent)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscribe delivers events whose type matches the prefix to handler using
// a catch-up subscription over $all.
func (b *Bus) Subscribe(ctx context.Context, typePrefix string, consumerName string, handler Handler) error {
	opts := esdb.SubscribeToAllOptions{
		From: esdb.End{},
	}
	if typePrefix != "" && typePrefix != "*" {
		opts.Filter = &esdb.SubscriptionFilter{
			Type:     esdb.EventFilterType,
			Prefixes: []string{typePrefix},
		}
	}

	sub, err := b.client.SubscribeToAll(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go b.pump(ctx, sub, consumerName, handler)
	return nil
}

// pump forwards subscription events to the handler until the context ends.
func (b *Bus) pump(ctx context.Context, sub *esdb.Subscription, consumerName string, handler Handler) {
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := sub.Recv()
		if msg.SubscriptionDropped != nil {
			log.Printf("events: subscription %s dropped: %v", consumerName, msg.SubscriptionDropped.Error)
			return
		}
		if msg.EventAppeared == nil {
			continue
		}

		recorded := msg.EventAppeared.OriginalEvent()
		if recorded == nil {
			continue
		}

		var event Event
		if err := json.Unmarshal(recorded.Data, &event); err != nil {
			log.Printf("events: %s: skipping malformed event %s: %v", consumerName, recorded.EventID, err)
			continue
		}

		if err := handler(ctx, event); err != nil {
			log.Printf("events: %s: handler error for %s: %v", consumerName, event.Type, err)
		}
	}
}

// Close closes the event bus connection
func (b *Bus) Close() {
	if b.client != nil {
		b.client.Close()
	}
}

// Health checks the event bus connection by reading the tail of $all
func (b *Bus) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), esdbHealthTimeout)
	defer cancel()

	stream, err := b.client.ReadAll(ctx, esdb.ReadAllOptions{
		Direction: esdb.Backwards,
		From:      esdb.End{},
	}, 1)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer stream.Close()

	if _, err := stream.Recv(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("health check read failed: %w", err)
	}
	return nil
}

var _ EventBus = (*Bus)(nil)
