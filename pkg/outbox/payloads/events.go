package payloads

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

// OrderLine is the product/quantity pair carried by order events.
type OrderLine struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// OrderCreatedEvent is emitted when an order is placed.
type OrderCreatedEvent struct {
	OrderID     uint            `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uint            `json:"user_id"`
	Total       decimal.Decimal `json:"total"`
	Items       []OrderLine     `json:"items"`
}

// OrderCancelledEvent is emitted when a customer cancels and stock is restored.
type OrderCancelledEvent struct {
	OrderID     uint        `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      uint        `json:"user_id"`
	Restocked   []OrderLine `json:"restocked"`
}

// OrderStatusChangedEvent is emitted on admin status or payment updates.
type OrderStatusChangedEvent struct {
	OrderID       uint                `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uint                `json:"user_id"`
	From          enums.OrderStatus   `json:"from"`
	To            enums.OrderStatus   `json:"to"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

type UserRegisteredEvent struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// ProductLowStockEvent is emitted when a sale or a stock update leaves stock at
// or below the threshold.
type ProductLowStockEvent struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}
