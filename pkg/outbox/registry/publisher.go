package registry

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/outbox/payloads"
)

// EventDescriptor says where an event type is published and which payload
// struct its data decodes into.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row with its envelope and typed payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that no amount of retrying will publish.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func payloadOf[T any]() func() any {
	return func() any { return new(T) }
}

// NewEventRegistry routes order lifecycle events to the orders topic and
// catalog or account events to the domain topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	switch {
	case cfg.OrdersTopic == "":
		return nil, errors.New("orders topic is required")
	case cfg.DomainTopic == "":
		return nil, errors.New("domain topic is required")
	}

	factories := map[enums.OutboxEventType]func() any{
		enums.EventOrderCreated:       payloadOf[payloads.OrderCreatedEvent](),
		enums.EventOrderCancelled:     payloadOf[payloads.OrderCancelledEvent](),
		enums.EventOrderStatusChanged: payloadOf[payloads.OrderStatusChangedEvent](),
		enums.EventUserRegistered:     payloadOf[payloads.UserRegisteredEvent](),
		enums.EventProductLowStock:    payloadOf[payloads.ProductLowStockEvent](),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(factories))}
	for eventType, factory := range factories {
		aggregate := eventType.Aggregate()
		topic := cfg.DomainTopic
		if aggregate == enums.AggregateOrder {
			topic = cfg.OrdersTopic
		}
		reg.entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  aggregate,
			Topic:          topic,
			PayloadFactory: factory,
		}
	}
	return reg, nil
}

// Descriptor looks up the routing for eventType.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.Descriptor(event.EventType)
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == 0 {
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	envelope, err := outbox.OpenEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}

	payload := desc.PayloadFactory()
	if err := envelope.DecodeData(payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
