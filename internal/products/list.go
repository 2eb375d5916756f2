package product

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

// ListFilters describe the supported filter knobs for the browse endpoints.
type ListFilters struct {
	CategoryID   *uint
	CategorySlug string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Search       string
	Featured     *bool
	InStock      bool
	Sort         enums.ProductSort
	// Status is honoured only by admin listings. Storefront listings always
	// show active products.
	Status *enums.ProductStatus
}

const (
	defaultCuratedLimit = 8
	maxCuratedLimit     = 50
)

func curatedLimit(limit int) int {
	if limit <= 0 {
		return defaultCuratedLimit
	}
	if limit > maxCuratedLimit {
		return maxCuratedLimit
	}
	return limit
}

func sortScope(sort enums.ProductSort) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch sort {
		case enums.ProductSortPriceAsc:
			return db.Order("price ASC").Order("id ASC")
		case enums.ProductSortPriceDesc:
			return db.Order("price DESC").Order("id DESC")
		case enums.ProductSortRating:
			return db.Order("rating_average DESC").Order("rating_count DESC").Order("id DESC")
		case enums.ProductSortPopular:
			return db.Order("sold_count DESC").Order("id DESC")
		case enums.ProductSortName:
			return db.Order("name ASC").Order("id ASC")
		default:
			return db.Order("created_at DESC").Order("id DESC")
		}
	}
}

func activeScope(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", enums.ProductStatusActive)
}

func flashSaleScope(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("is_flash_sale = ?", true).
			Where("flash_sale_ends_at IS NULL OR flash_sale_ends_at > ?", now)
	}
}
