package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

// Product is a catalog listing. Stock is the only source of availability.
type Product struct {
	ID              uint                `gorm:"column:id;primaryKey"`
	CategoryID      *uint               `gorm:"column:category_id;index"`
	Name            string              `gorm:"column:name;not null"`
	Slug            string              `gorm:"column:slug;not null;uniqueIndex:ux_products_slug"`
	Description     *string             `gorm:"column:description"`
	SKU             *string             `gorm:"column:sku"`
	Price           decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	CompareAtPrice  *decimal.Decimal    `gorm:"column:compare_at_price;type:numeric(12,2)"`
	Stock           int                 `gorm:"column:stock;not null;check:chk_products_stock_non_negative,stock >= 0"`
	ImageURL        *string             `gorm:"column:image_url"`
	IsFeatured      bool                `gorm:"column:is_featured;not null"`
	IsFlashSale     bool                `gorm:"column:is_flash_sale;not null"`
	FlashSaleEndsAt *time.Time          `gorm:"column:flash_sale_ends_at"`
	Status          enums.ProductStatus `gorm:"column:status;type:text;not null;index"`
	RatingAverage   decimal.Decimal     `gorm:"column:rating_average;type:numeric(3,2);not null"`
	RatingCount     int                 `gorm:"column:rating_count;not null"`
	SoldCount       int                 `gorm:"column:sold_count;not null"`
	Images          []ProductImage      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

type ProductImage struct {
	ID        uint    `gorm:"column:id;primaryKey"`
	ProductID uint    `gorm:"column:product_id;not null;index"`
	URL       string  `gorm:"column:url;not null"`
	AltText   *string `gorm:"column:alt_text"`
	Position  int     `gorm:"column:position;not null"`
}
