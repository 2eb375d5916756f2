package enums

// OutboxAggregateType is the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateUser    OutboxAggregateType = "user"
	AggregateProduct OutboxAggregateType = "product"
)

var aggregateTypes = newSet("aggregate type", AggregateOrder, AggregateUser, AggregateProduct)

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse(value)
}

// OutboxEventType is the event_type column of outbox_events and the
// event_type attribute on every published message.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
	EventUserRegistered     OutboxEventType = "user_registered"
	EventProductLowStock    OutboxEventType = "product_low_stock"
)

var eventTypes = newSet("event type",
	EventOrderCreated, EventOrderCancelled, EventOrderStatusChanged, EventUserRegistered, EventProductLowStock)

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

// Aggregate is the aggregate type every event of this kind belongs to.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	switch e {
	case EventUserRegistered:
		return AggregateUser
	case EventProductLowStock:
		return AggregateProduct
	default:
		return AggregateOrder
	}
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return eventTypes.parse(value)
}
