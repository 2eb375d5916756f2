package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-api/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		name, kind, input, want string
	}{
		{"short topic", "topics", "orders", "projects/shop/topics/orders"},
		{"full topic", "topics", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"short subscription", "subscriptions", " inventory ", "projects/shop/subscriptions/inventory"},
		{"wrong kind is expanded", "subscriptions", "projects/other/topics/orders", "projects/shop/subscriptions/projects/other/topics/orders"},
		{"empty", "topics", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, resourceName("shop", tc.kind, tc.input))
		})
	}
	require.Empty(t, resourceName("", "topics", "orders"))
}

func TestTopicNamesSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{OrdersTopic: "orders", DomainTopic: "  "})
	require.Equal(t, []string{"orders"}, names)
	require.Empty(t, topicNames(config.PubSubConfig{}))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestLookupErrorNamesTheResource(t *testing.T) {
	missing := lookupError(kindTopic, "orders", status.Error(codes.NotFound, "gone"))
	require.EqualError(t, missing, `pubsub topic "orders" does not exist`)

	denied := lookupError(kindSubscription, "alerts", status.Error(codes.PermissionDenied, "nope"))
	require.ErrorContains(t, denied, `look up pubsub subscription "alerts"`)
	require.Equal(t, codes.PermissionDenied, status.Code(errors.Unwrap(denied)))
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("orders"))
	require.Nil(t, c.Subscription("orders"))
	require.Nil(t, c.DomainSubscription())
	require.ErrorIs(t, c.Ping(context.Background()), ErrNotInitialized)
	require.ErrorIs(t, c.EnsureSubscription(context.Background(), "sub", "topic"), ErrNotInitialized)
	require.NoError(t, c.Close())
}
