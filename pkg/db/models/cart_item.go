package models

import (
	"time"

	dbtypes "github.com/angelmondragon/storefront-api/pkg/db/types"
)

// CartItem is one product line in a user's cart. VariantKey is the canonical
// form of Variant and participates in the uniqueness constraint.
type CartItem struct {
	ID         uint            `gorm:"column:id;primaryKey"`
	UserID     uint            `gorm:"column:user_id;not null;uniqueIndex:ux_cart_items_user_product_variant"`
	ProductID  uint            `gorm:"column:product_id;not null;uniqueIndex:ux_cart_items_user_product_variant"`
	VariantKey string          `gorm:"column:variant_key;not null;uniqueIndex:ux_cart_items_user_product_variant"`
	Variant    dbtypes.JSONMap `gorm:"column:variant;type:jsonb"`
	Quantity   int             `gorm:"column:quantity;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
