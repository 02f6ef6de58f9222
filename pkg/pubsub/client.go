package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/forno-digital/pizzaria-backend/pkg/config"
	"github.com/forno-digital/pizzaria-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub topic name is required")
)

// Client wraps the Pub/Sub v2 client for the single topic this service
// publishes to: cash entry events.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient connects to Pub/Sub and verifies the cash events topic exists.
// Topics are provisioned out of band; a missing topic is a startup error,
// not something to create on the fly.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.CashEventsTopic) == "" {
		return nil, errNoTopic
	}

	inner, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: inner, projectID: gcp.ProjectID, cfg: cfg}
	if err := c.checkTopic(ctx, cfg.CashEventsTopic); err != nil {
		_ = inner.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) checkTopic(ctx context.Context, name string) error {
	resource := c.topicResourceName(name)
	if resource == "" {
		return fmt.Errorf("topic %q not configured", name)
	}

	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: resource})
	if err != nil {
		// v2 surfaces gRPC errors; NotFound means the topic doesn't exist.
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("topic %q does not exist", name)
		}
		return fmt.Errorf("checking topic %q: %w", name, err)
	}
	return nil
}

// CashEventsPublisher returns the publisher handle for cash entry events.
func (c *Client) CashEventsPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	resource := c.topicResourceName(c.cfg.CashEventsTopic)
	if resource == "" {
		return nil
	}
	return c.client.Publisher(resource)
}

// Ping verifies connectivity by re-checking the configured topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.checkTopic(ctx, c.cfg.CashEventsTopic)
}

// Close releases the Pub/Sub client resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// topicResourceName accepts either a bare topic ID or a full
// projects/<p>/topics/<t> resource name.
func (c *Client) topicResourceName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	if c.projectID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", c.projectID, n)
}
