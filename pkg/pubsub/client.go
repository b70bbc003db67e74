package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/fleetshop-backend/pkg/config"
	"github.com/angelmondragon/fleetshop-backend/pkg/logger"
)

var ErrTopicMissing = errors.New("pubsub: topic does not exist")

// Client owns the Pub/Sub connection and the inventory topic publisher.
type Client struct {
	conn      *pubsub.Client
	topic     string
	inventory *pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails unless the inventory topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	topic := topicResourceName(gcp.ProjectID, cfg.InventoryTopic)
	if topic == "" {
		return nil, errors.New("pubsub: project id and inventory topic are required")
	}

	conn, err := pubsub.NewClient(ctx, strings.TrimSpace(gcp.ProjectID), credentials(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	c := &Client{conn: conn, topic: topic}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.inventory = conn.Publisher(topic)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "pubsub.connected")
	}
	return c, nil
}

// credentials prefers inline JSON over a key file. With neither set the
// library falls back to application default credentials.
func credentials(gcp config.GCPConfig) []option.ClientOption {
	if js := strings.TrimSpace(gcp.CredentialsJSON); js != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(js))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// InventoryPublisher is the publisher used for low-stock alerts.
func (c *Client) InventoryPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.inventory
}

// Ping looks the inventory topic up through the admin API.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errors.New("pubsub: client not connected")
	}
	_, err := c.conn.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%w: %s", ErrTopicMissing, c.topic)
	case err != nil:
		return fmt.Errorf("pubsub get topic %s: %w", c.topic, err)
	}
	return nil
}

// Close flushes pending publishes before releasing the connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	if c.inventory != nil {
		c.inventory.Stop()
	}
	return c.conn.Close()
}

// topicResourceName expands a bare topic ID into its full resource name.
// Full names pass through untouched.
func topicResourceName(projectID, topic string) string {
	topic = strings.TrimSpace(topic)
	switch {
	case topic == "":
		return ""
	case strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/"):
		return topic
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/topics/" + topic
}
