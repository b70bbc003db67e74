package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

const (
	// EventLowStock is emitted when a commit leaves a part at or below its reorder threshold.
	EventLowStock = "inventory.low_stock"

	envelopeVersion       = 1
	defaultPublishTimeout = 10 * time.Second
)

// Envelope is the JSON body of every published event.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

// TopicEventPublisher wraps a single topic.
type TopicEventPublisher struct {
	pub     topicPublisher
	now     func() time.Time
	timeout time.Duration
}

// NewEventPublisher wraps a Pub/Sub publisher. A nil publisher yields a no-op.
func NewEventPublisher(p *pubsub.Publisher) EventPublisher {
	if p == nil {
		return NoopPublisher{}
	}
	return newTopicEventPublisher(&gcpPublisher{Publisher: p})
}

func newTopicEventPublisher(pub topicPublisher) *TopicEventPublisher {
	return &TopicEventPublisher{pub: pub, now: time.Now, timeout: defaultPublishTimeout}
}

func (p *TopicEventPublisher) Publish(ctx context.Context, eventType string, data any) error {
	if p == nil || p.pub == nil {
		return errors.New("publisher not configured")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	envelope := Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: p.now().UTC(),
		Data:       raw,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_id":   envelope.EventID,
			"event_type": eventType,
			"created_at": envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return fmt.Errorf("publisher returned nil for %s", eventType)
	}
	if _, err := result.Get(publishCtx); err != nil {
		return err
	}
	return nil
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*pubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
