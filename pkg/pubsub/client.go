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

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	// ErrNotInitialized is returned by Ping on a nil or closed Client.
	ErrNotInitialized = errors.New("pubsub client not initialized")
)

// Client wraps the Pub/Sub v2 client with the storefront's topic layout.
// Names may be short ids or full resource names.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

// NewClient connects and fails unless every configured topic exists.
// PUBSUB_EMULATOR_HOST is honoured by the underlying client.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	raw, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	c := &Client{client: raw, projectID: project, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"project_id": project,
		"topics":     topicNames(cfg),
	}), "pubsub ready")
	return c, nil
}

func topicNames(cfg config.PubSubConfig) []string {
	var names []string
	for _, name := range []string{cfg.OrdersTopic, cfg.DomainTopic} {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Ping looks up every configured topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrNotInitialized
	}
	for _, name := range topicNames(c.cfg) {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.name(kindTopic, name)})
		if err != nil {
			return lookupError(kindTopic, name, err)
		}
	}
	return nil
}

// EnsureSubscription checks that subscription exists and is attached to
// topic, so a worker never drains a feed it was not built for.
func (c *Client) EnsureSubscription(ctx context.Context, subscription, topic string) error {
	if c == nil || c.client == nil {
		return ErrNotInitialized
	}
	if strings.TrimSpace(subscription) == "" {
		return errors.New("pubsub subscription name is required")
	}
	sub, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
		Subscription: c.name(kindSubscription, subscription),
	})
	if err != nil {
		return lookupError(kindSubscription, subscription, err)
	}
	if want := c.name(kindTopic, topic); want != "" && sub.GetTopic() != want {
		return fmt.Errorf("subscription %q reads %s, expected %s", subscription, sub.GetTopic(), want)
	}
	return nil
}

func lookupError(kind, name string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("pubsub %s %q does not exist", strings.TrimSuffix(kind, "s"), name)
	}
	return fmt.Errorf("look up pubsub %s %q: %w", strings.TrimSuffix(kind, "s"), name, err)
}

// Subscription returns a receiver for name, or nil on a nil client or an
// unresolvable name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if full := c.name(kindSubscription, name); full != "" {
		return c.client.Subscriber(full)
	}
	return nil
}

// DomainSubscription is the feed of catalog and account events.
func (c *Client) DomainSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.DomainSubscription)
}

// Publisher returns a publisher for topic, or nil like Subscription.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if full := c.name(kindTopic, topic); full != "" {
		return c.client.Publisher(full)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) name(kind, id string) string {
	if c == nil || c.client == nil {
		return ""
	}
	return resourceName(c.projectID, kind, id)
}

// resourceName expands id to projects/<project>/<kind>/<id>. Ids that are
// already full names of that kind are returned as is.
func resourceName(projectID, kind, id string) string {
	id = strings.TrimSpace(id)
	projectID = strings.TrimSpace(projectID)
	switch {
	case id == "":
		return ""
	case strings.HasPrefix(id, "projects/") && strings.Contains(id, "/"+kind+"/"):
		return id
	case projectID == "":
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + id
}
