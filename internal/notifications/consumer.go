package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/outbox/payloads"
)

const inventoryAlertConsumer = "inventory-alerts"

type processedTracker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID string) (bool, error)
	Release(ctx context.Context, consumer string, eventID string) error
}

// Consumer turns domain events into staff alerts written to the log stream.
type Consumer struct {
	subscription *pubsub.Subscriber
	idempotency  processedTracker
	logg         *logger.Logger
}

// NewConsumer builds the domain event consumer.
func NewConsumer(subscription *pubsub.Subscriber, manager processedTracker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{subscription: subscription, idempotency: manager, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data) == outcomeNack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeNack
)

func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) outcome {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": attrs["event_type"],
	})
	eventType, ok := c.classify(logCtx, attrs)
	if !ok {
		return outcomeAck
	}
	if eventType != enums.EventProductLowStock && eventType != enums.EventUserRegistered {
		c.logg.Debug(logCtx, "skipping unhandled event")
		return outcomeAck
	}

	envelope, err := outbox.OpenEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return outcomeAck
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, inventoryAlertConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return outcomeNack
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return outcomeAck
	}

	if err := c.handle(logCtx, eventType, envelope.Data); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		if relErr := c.idempotency.Release(ctx, inventoryAlertConsumer, envelope.EventID); relErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency key", relErr)
		}
		return outcomeNack
	}
	return outcomeAck
}

// classify reads the event type attribute. Messages with an unknown type,
// or an aggregate_type that does not fit it, are logged and dropped.
func (c *Consumer) classify(ctx context.Context, attrs map[string]string) (enums.OutboxEventType, bool) {
	eventType, err := enums.ParseOutboxEventType(attrs["event_type"])
	if err != nil {
		c.logg.Warn(ctx, "dropping message with unknown event type")
		return "", false
	}
	raw, present := attrs["aggregate_type"]
	if !present {
		return eventType, true
	}
	aggregate, err := enums.ParseOutboxAggregateType(raw)
	if err != nil || aggregate != eventType.Aggregate() {
		c.logg.Warn(c.logg.WithField(ctx, "aggregate_type", raw), "dropping message with mismatched aggregate type")
		return "", false
	}
	return eventType, true
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	switch eventType {
	case enums.EventProductLowStock:
		var payload payloads.ProductLowStockEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse low stock payload: %w", err)
		}
		if payload.ProductID == 0 {
			return fmt.Errorf("product id missing")
		}
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"product_id": payload.ProductID,
			"product":    payload.Name,
			"stock":      payload.Stock,
			"threshold":  payload.Threshold,
		}), "inventory.low_stock")
	case enums.EventUserRegistered:
		var payload payloads.UserRegisteredEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse user registered payload: %w", err)
		}
		c.logg.Info(c.logg.WithUserID(ctx, payload.UserID), "customer.registered")
	}
	return nil
}
