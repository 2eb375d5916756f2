package product

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
)

// ProductDTO is the API representation of a catalog product.
type ProductDTO struct {
	ID              uint                `json:"id"`
	CategoryID      *uint               `json:"category_id,omitempty"`
	Name            string              `json:"name"`
	Slug            string              `json:"slug"`
	Description     *string             `json:"description,omitempty"`
	SKU             *string             `json:"sku,omitempty"`
	Price           decimal.Decimal     `json:"price"`
	CompareAtPrice  *decimal.Decimal    `json:"compare_at_price,omitempty"`
	Stock           int                 `json:"stock"`
	ImageURL        *string             `json:"image_url,omitempty"`
	IsFeatured      bool                `json:"is_featured"`
	IsFlashSale     bool                `json:"is_flash_sale"`
	FlashSaleEndsAt *time.Time          `json:"flash_sale_ends_at,omitempty"`
	Status          enums.ProductStatus `json:"status"`
	RatingAverage   decimal.Decimal     `json:"rating_average"`
	RatingCount     int                 `json:"rating_count"`
	SoldCount       int                 `json:"sold_count"`
	Images          []ImageDTO          `json:"images"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type ImageDTO struct {
	ID       uint    `json:"id"`
	URL      string  `json:"url"`
	AltText  *string `json:"alt_text,omitempty"`
	Position int     `json:"position"`
}

// FromModel maps a Product model to its DTO.
func FromModel(m *models.Product) ProductDTO {
	images := make([]ImageDTO, 0, len(m.Images))
	for _, img := range m.Images {
		images = append(images, ImageDTO{ID: img.ID, URL: img.URL, AltText: img.AltText, Position: img.Position})
	}
	return ProductDTO{
		ID:              m.ID,
		CategoryID:      m.CategoryID,
		Name:            m.Name,
		Slug:            m.Slug,
		Description:     m.Description,
		SKU:             m.SKU,
		Price:           m.Price,
		CompareAtPrice:  m.CompareAtPrice,
		Stock:           m.Stock,
		ImageURL:        m.ImageURL,
		IsFeatured:      m.IsFeatured,
		IsFlashSale:     m.IsFlashSale,
		FlashSaleEndsAt: m.FlashSaleEndsAt,
		Status:          m.Status,
		RatingAverage:   m.RatingAverage,
		RatingCount:     m.RatingCount,
		SoldCount:       m.SoldCount,
		Images:          images,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func fromModels(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}

// CreateProductRequest is the admin create payload. Slug defaults to the
// slugified name.
type CreateProductRequest struct {
	CategoryID      *uint            `json:"category_id"`
	Name            string           `json:"name" validate:"required,max=200"`
	Slug            string           `json:"slug" validate:"omitempty,slug,max=200"`
	Description     *string          `json:"description" validate:"omitempty,max=10000"`
	SKU             *string          `json:"sku" validate:"omitempty,max=64"`
	Price           decimal.Decimal  `json:"price"`
	CompareAtPrice  *decimal.Decimal `json:"compare_at_price"`
	Stock           int              `json:"stock" validate:"min=0"`
	ImageURL        *string          `json:"image_url" validate:"omitempty,url"`
	IsFeatured      bool             `json:"is_featured"`
	IsFlashSale     bool             `json:"is_flash_sale"`
	FlashSaleEndsAt *time.Time       `json:"flash_sale_ends_at"`
	Status          string           `json:"status" validate:"omitempty,oneof=active draft archived"`
}

// UpdateProductRequest carries optional product mutations.
type UpdateProductRequest struct {
	CategoryID      *uint            `json:"category_id"`
	Name            *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Slug            *string          `json:"slug" validate:"omitempty,slug,max=200"`
	Description     *string          `json:"description" validate:"omitempty,max=10000"`
	SKU             *string          `json:"sku" validate:"omitempty,max=64"`
	Price           *decimal.Decimal `json:"price"`
	CompareAtPrice  *decimal.Decimal `json:"compare_at_price"`
	ImageURL        *string          `json:"image_url" validate:"omitempty,url"`
	IsFeatured      *bool            `json:"is_featured"`
	IsFlashSale     *bool            `json:"is_flash_sale"`
	FlashSaleEndsAt *time.Time       `json:"flash_sale_ends_at"`
	Status          *string          `json:"status" validate:"omitempty,oneof=active draft archived"`
}

type UpdateStockRequest struct {
	Stock int `json:"stock" validate:"min=0"`
}

type AddImageRequest struct {
	URL      string  `json:"url" validate:"required,url"`
	AltText  *string `json:"alt_text" validate:"omitempty,max=200"`
	Position *int    `json:"position" validate:"omitempty,min=0"`
}
