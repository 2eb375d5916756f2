package enums

// OrderStatus tracks fulfillment progress of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStatuses = newSet("order status",
	OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled)

// forwardTransitions excludes cancellation, which restores stock and is
// handled separately.
var forwardTransitions = map[OrderStatus]OrderStatus{
	OrderStatusPending:    OrderStatusProcessing,
	OrderStatusProcessing: OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
}

// IsValid reports whether the value is a known order status.
func (s OrderStatus) IsValid() bool { return orderStatuses.has(s) }

// Cancellable reports whether an order in this status may be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// CanAdvanceTo reports whether next is the permitted forward step from s.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	allowed, ok := forwardTransitions[s]
	return ok && allowed == next
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return orderStatuses.parse(value)
}
