package paymentmethods

import (
	"time"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
)

// PaymentMethodDTO never carries more than brand and last four digits.
type PaymentMethodDTO struct {
	ID         uint                    `json:"id"`
	Type       enums.PaymentMethodType `json:"type"`
	Provider   *string                 `json:"provider,omitempty"`
	Brand      *string                 `json:"brand,omitempty"`
	Last4      *string                 `json:"last4,omitempty"`
	ExpMonth   *int                    `json:"exp_month,omitempty"`
	ExpYear    *int                    `json:"exp_year,omitempty"`
	HolderName *string                 `json:"holder_name,omitempty"`
	IsDefault  bool                    `json:"is_default"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

func FromModel(m *models.PaymentMethod) PaymentMethodDTO {
	return PaymentMethodDTO{
		ID:         m.ID,
		Type:       m.Type,
		Provider:   m.Provider,
		Brand:      m.Brand,
		Last4:      m.Last4,
		ExpMonth:   m.ExpMonth,
		ExpYear:    m.ExpYear,
		HolderName: m.HolderName,
		IsDefault:  m.IsDefault,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type CreatePaymentMethodRequest struct {
	Type       string  `json:"type" validate:"required,oneof=card paypal bank_transfer cash_on_delivery"`
	Provider   *string `json:"provider" validate:"omitempty,max=50"`
	Brand      *string `json:"brand" validate:"omitempty,max=30"`
	Last4      *string `json:"last4" validate:"omitempty,last4"`
	ExpMonth   *int    `json:"exp_month" validate:"omitempty,min=1,max=12"`
	ExpYear    *int    `json:"exp_year" validate:"omitempty,min=2000,max=2100"`
	HolderName *string `json:"holder_name" validate:"omitempty,max=120"`
	IsDefault  bool    `json:"is_default"`
}

type UpdatePaymentMethodRequest struct {
	Provider   *string `json:"provider" validate:"omitempty,max=50"`
	Brand      *string `json:"brand" validate:"omitempty,max=30"`
	Last4      *string `json:"last4" validate:"omitempty,last4"`
	ExpMonth   *int    `json:"exp_month" validate:"omitempty,min=1,max=12"`
	ExpYear    *int    `json:"exp_year" validate:"omitempty,min=2000,max=2100"`
	HolderName *string `json:"holder_name" validate:"omitempty,max=120"`
	IsDefault  *bool   `json:"is_default"`
}
