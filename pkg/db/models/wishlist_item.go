package models

import "time"

// WishlistItem links a user to a liked product.
type WishlistItem struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:ux_wishlist_items_user_product"`
	ProductID uint      `gorm:"column:product_id;not null;uniqueIndex:ux_wishlist_items_user_product;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
