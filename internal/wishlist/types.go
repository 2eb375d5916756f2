package wishlist

import (
	"time"

	product "github.com/angelmondragon/storefront-api/internal/products"
)

// WishlistItemDTO wraps the product included in a wishlist row.
type WishlistItemDTO struct {
	Product   product.ProductDTO `json:"product"`
	CreatedAt time.Time          `json:"created_at"`
}

type AddItemRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
}

// ContainsDTO answers whether a product is on the wishlist.
type ContainsDTO struct {
	ProductID  uint `json:"product_id"`
	InWishlist bool `json:"in_wishlist"`
}
