package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-api/pkg/checkout"
)

// CartItemDTO is one cart line priced from the live product record.
type CartItemDTO struct {
	ID          uint              `json:"id"`
	ProductID   uint              `json:"product_id"`
	ProductName string            `json:"product_name"`
	ProductSlug string            `json:"product_slug"`
	ImageURL    *string           `json:"image_url,omitempty"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Quantity    int               `json:"quantity"`
	Variant     map[string]string `json:"variant,omitempty"`
	LineTotal   decimal.Decimal   `json:"line_total"`
	Stock       int               `json:"stock"`
	Available   bool              `json:"available"`
}

// CartDTO is the cart view. Lines whose product is gone are listed as
// unavailable and left out of the totals.
type CartDTO struct {
	Items     []CartItemDTO   `json:"items"`
	ItemCount int             `json:"item_count"`
	Totals    checkout.Totals `json:"totals"`
}

type AddItemRequest struct {
	ProductID uint              `json:"product_id" validate:"required"`
	Quantity  int               `json:"quantity" validate:"required,min=1,max=999"`
	Variant   map[string]string `json:"variant" validate:"omitempty,max=10,dive,keys,min=1,max=50,endkeys,max=100"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=999"`
}
