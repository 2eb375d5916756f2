package models

import (
	"time"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

type Review struct {
	ID        uint               `gorm:"column:id;primaryKey"`
	ProductID uint               `gorm:"column:product_id;not null;uniqueIndex:ux_reviews_product_user"`
	UserID    uint               `gorm:"column:user_id;not null;uniqueIndex:ux_reviews_product_user"`
	Rating    int                `gorm:"column:rating;not null;check:chk_reviews_rating_range,rating BETWEEN 1 AND 5"`
	Title     *string            `gorm:"column:title"`
	Body      *string            `gorm:"column:body"`
	Status    enums.ReviewStatus `gorm:"column:status;type:text;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
