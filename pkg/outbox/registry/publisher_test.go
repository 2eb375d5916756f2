package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/outbox/payloads"
)

func TestEventRegistryResolvesOrderCreated(t *testing.T) {
	reg := newTestEventRegistry(t)

	data, err := json.Marshal(payloads.OrderCreatedEvent{OrderID: 7, OrderNumber: "ORD-2026-ABCDEFGH", UserID: 3})
	require.NoError(t, err)

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   7,
		Payload:       mustEnvelope(t, data),
	})
	require.NoError(t, err)
	require.Equal(t, "orders-topic", resolved.Descriptor.Topic)

	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok)
	require.Equal(t, "ORD-2026-ABCDEFGH", payload.OrderNumber)
}

func TestEventRegistryRoutesDomainEvents(t *testing.T) {
	reg := newTestEventRegistry(t)

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventProductLowStock,
		AggregateType: enums.AggregateProduct,
		AggregateID:   12,
		Payload:       mustEnvelope(t, []byte(`{"product_id":12,"stock":2,"threshold":5}`)),
	})
	require.NoError(t, err)
	require.Equal(t, "domain-topic", resolved.Descriptor.Topic)
}

func TestEventRegistryResolveNonRetryable(t *testing.T) {
	reg := newTestEventRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     "coupon_redeemed",
			AggregateType: enums.AggregateOrder,
			AggregateID:   1,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateUser,
			AggregateID:   1,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   1,
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"broken envelope": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   1,
			Payload:       json.RawMessage(`{"version":`),
		},
	}

	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			var nonRetry NonRetryableError
			require.True(t, errors.As(err, &nonRetry))
		})
	}
}

func TestEveryEventTypeHasADescriptor(t *testing.T) {
	reg := newTestEventRegistry(t)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderCancelled,
		enums.EventOrderStatusChanged,
		enums.EventUserRegistered,
		enums.EventProductLowStock,
	} {
		desc, ok := reg.Descriptor(eventType)
		require.True(t, ok, eventType)
		require.Equal(t, eventType.Aggregate(), desc.AggregateType)
		require.NotNil(t, desc.PayloadFactory())
	}
	desc, _ := reg.Descriptor(enums.EventUserRegistered)
	require.Equal(t, "domain-topic", desc.Topic)
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"})
	require.Error(t, err)
	_, err = NewEventRegistry(config.PubSubConfig{DomainTopic: "domain"})
	require.Error(t, err)
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		OrdersTopic: "orders-topic",
		DomainTopic: "domain-topic",
	})
	require.NoError(t, err)
	return reg
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	})
	require.NoError(t, err)
	return data
}
