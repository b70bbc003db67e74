package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/fleetshop-backend/pkg/config"
)

type stubResult struct {
	id  string
	err error
}

func (r stubResult) Get(context.Context) (string, error) { return r.id, r.err }

type stubTopic struct {
	messages []*pubsub.Message
	err      error
}

func (s *stubTopic) Publish(_ context.Context, msg *pubsub.Message) publishResult {
	s.messages = append(s.messages, msg)
	return stubResult{id: "msg-1", err: s.err}
}

func TestTopicEventPublisherWrapsEnvelope(t *testing.T) {
	topic := &stubTopic{}
	pub := newTopicEventPublisher(topic)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	err := pub.Publish(context.Background(), EventLowStock, map[string]any{"part_id": "p1", "quantity": 2})
	require.NoError(t, err)
	require.Len(t, topic.messages, 1)

	msg := topic.messages[0]
	assert.Equal(t, EventLowStock, msg.Attributes["event_type"])
	assert.NotEmpty(t, msg.Attributes["event_id"])

	var envelope Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.Equal(t, EventLowStock, envelope.EventType)
	assert.True(t, envelope.OccurredAt.Equal(fixed))
	assert.JSONEq(t, `{"part_id":"p1","quantity":2}`, string(envelope.Data))
}

func TestTopicEventPublisherReturnsPublishError(t *testing.T) {
	topic := &stubTopic{err: errors.New("unavailable")}
	pub := newTopicEventPublisher(topic)

	err := pub.Publish(context.Background(), EventLowStock, struct{}{})
	require.Error(t, err)
}

func TestNewEventPublisherNilIsNoop(t *testing.T) {
	pub := NewEventPublisher(nil)
	_, ok := pub.(NoopPublisher)
	require.True(t, ok)
	require.NoError(t, pub.Publish(context.Background(), EventLowStock, nil))
}

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/p/topics/inventory", topicResourceName("p", "inventory"))
	assert.Equal(t, "projects/x/topics/y", topicResourceName("p", "projects/x/topics/y"))
	assert.Equal(t, "", topicResourceName("", "inventory"))
	assert.Equal(t, "", topicResourceName("p", " "))
}

func TestCredentialsPreferInlineJSON(t *testing.T) {
	assert.Len(t, credentials(config.GCPConfig{CredentialsJSON: "{}", ApplicationCredentials: "/tmp/key.json"}), 1)
	assert.Len(t, credentials(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}), 1)
	assert.Empty(t, credentials(config.GCPConfig{}))
}

func TestClosedClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.InventoryPublisher())
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}
