package models

import (
	"time"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

// PaymentMethod is a stored reference to a payment instrument. No card data
// beyond brand and last four digits is kept.
type PaymentMethod struct {
	ID         uint                    `gorm:"column:id;primaryKey"`
	UserID     uint                    `gorm:"column:user_id;not null;index"`
	Type       enums.PaymentMethodType `gorm:"column:type;type:text;not null"`
	Provider   *string                 `gorm:"column:provider"`
	Brand      *string                 `gorm:"column:brand"`
	Last4      *string                 `gorm:"column:last4;type:char(4)"`
	ExpMonth   *int                    `gorm:"column:exp_month"`
	ExpYear    *int                    `gorm:"column:exp_year"`
	HolderName *string                 `gorm:"column:holder_name"`
	IsDefault  bool                    `gorm:"column:is_default;not null"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
