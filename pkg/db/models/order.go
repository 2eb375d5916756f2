package models

import (
	"time"

	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/storefront-api/pkg/db/types"
	"github.com/angelmondragon/storefront-api/pkg/enums"
)

// Order is created once with its items. Afterwards only the status columns change.
type Order struct {
	ID                uint                `gorm:"column:id;primaryKey"`
	OrderNumber       string              `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	UserID            uint                `gorm:"column:user_id;not null;index"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null;index"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	Subtotal          decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Shipping          decimal.Decimal     `gorm:"column:shipping;type:numeric(12,2);not null"`
	Tax               decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	Discount          decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null"`
	Total             decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	CouponCode        *string             `gorm:"column:coupon_code"`
	ShippingAddressID uint                `gorm:"column:shipping_address_id;not null"`
	BillingAddressID  uint                `gorm:"column:billing_address_id;not null"`
	PaymentMethodID   *uint               `gorm:"column:payment_method_id"`
	ShippingSnapshot  dbtypes.JSONMap     `gorm:"column:shipping_snapshot;type:jsonb"`
	Notes             *string             `gorm:"column:notes"`
	CancelledAt       *time.Time          `gorm:"column:cancelled_at"`
	Items             []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots the product name and unit price at purchase time.
type OrderItem struct {
	ID          uint            `gorm:"column:id;primaryKey"`
	OrderID     uint            `gorm:"column:order_id;not null;index"`
	ProductID   uint            `gorm:"column:product_id;not null;index"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	Variant     dbtypes.JSONMap `gorm:"column:variant;type:jsonb"`
}
