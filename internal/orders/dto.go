package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
)

type OrderItemDTO struct {
	ID          uint              `json:"id"`
	ProductID   uint              `json:"product_id"`
	ProductName string            `json:"product_name"`
	Quantity    int               `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	LineTotal   decimal.Decimal   `json:"line_total"`
	Variant     map[string]string `json:"variant,omitempty"`
}

type OrderDTO struct {
	ID                uint                `json:"id"`
	OrderNumber       string              `json:"order_number"`
	UserID            uint                `json:"user_id"`
	Status            enums.OrderStatus   `json:"status"`
	PaymentStatus     enums.PaymentStatus `json:"payment_status"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	Shipping          decimal.Decimal     `json:"shipping"`
	Tax               decimal.Decimal     `json:"tax"`
	Discount          decimal.Decimal     `json:"discount"`
	Total             decimal.Decimal     `json:"total"`
	CouponCode        *string             `json:"coupon_code,omitempty"`
	ShippingAddressID uint                `json:"shipping_address_id"`
	BillingAddressID  uint                `json:"billing_address_id"`
	PaymentMethodID   *uint               `json:"payment_method_id,omitempty"`
	ShippingAddress   map[string]string   `json:"shipping_address,omitempty"`
	Notes             *string             `json:"notes,omitempty"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
	Items             []OrderItemDTO      `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func FromModel(m *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, OrderItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
			Variant:     item.Variant,
		})
	}
	return OrderDTO{
		ID:                m.ID,
		OrderNumber:       m.OrderNumber,
		UserID:            m.UserID,
		Status:            m.Status,
		PaymentStatus:     m.PaymentStatus,
		Subtotal:          m.Subtotal,
		Shipping:          m.Shipping,
		Tax:               m.Tax,
		Discount:          m.Discount,
		Total:             m.Total,
		CouponCode:        m.CouponCode,
		ShippingAddressID: m.ShippingAddressID,
		BillingAddressID:  m.BillingAddressID,
		PaymentMethodID:   m.PaymentMethodID,
		ShippingAddress:   m.ShippingSnapshot,
		Notes:             m.Notes,
		CancelledAt:       m.CancelledAt,
		Items:             items,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// PlaceOrderItem is one requested line. Variant selections are copied onto the order item.
type PlaceOrderItem struct {
	ProductID uint              `json:"product_id" validate:"required"`
	Quantity  int               `json:"quantity" validate:"required,min=1,max=999"`
	Variant   map[string]string `json:"variant" validate:"omitempty,max=10,dive,keys,min=1,max=50,endkeys,max=100"`
}

// PlaceOrderRequest orders Items, or the current cart when Items is empty.
// Billing defaults to the shipping address.
type PlaceOrderRequest struct {
	Items             []PlaceOrderItem `json:"items" validate:"omitempty,max=100,dive"`
	ShippingAddressID uint             `json:"shipping_address_id" validate:"required"`
	BillingAddressID  *uint            `json:"billing_address_id"`
	PaymentMethodID   *uint            `json:"payment_method_id"`
	CouponCode        *string          `json:"coupon_code" validate:"omitempty,max=50"`
	Notes             *string          `json:"notes" validate:"omitempty,max=1000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required,oneof=pending paid failed refunded"`
}
