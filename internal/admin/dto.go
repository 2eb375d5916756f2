package admin

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

type Totals struct {
	Users          int64           `json:"users"`
	Products       int64           `json:"products"`
	Orders         int64           `json:"orders"`
	Revenue        decimal.Decimal `json:"revenue"`
	UnreadMessages int64           `json:"unread_messages"`
}

type LowStockProduct struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Stock int    `json:"stock"`
}

type RecentOrder struct {
	ID            uint                `json:"id"`
	OrderNumber   string              `json:"order_number"`
	UserID        uint                `json:"user_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Total         decimal.Decimal     `json:"total"`
	CreatedAt     time.Time           `json:"created_at"`
}

// DashboardDTO is the admin landing page payload.
type DashboardDTO struct {
	Totals            Totals                      `json:"totals"`
	OrdersByStatus    map[enums.OrderStatus]int64 `json:"orders_by_status"`
	LowStockThreshold int                         `json:"low_stock_threshold"`
	LowStock          []LowStockProduct           `json:"low_stock"`
	RecentOrders      []RecentOrder               `json:"recent_orders"`
}
