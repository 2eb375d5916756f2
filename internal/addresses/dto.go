package addresses

import (
	"time"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-api/pkg/db/types"
)

type AddressDTO struct {
	ID         uint      `json:"id"`
	Label      *string   `json:"label,omitempty"`
	FullName   string    `json:"full_name"`
	Phone      *string   `json:"phone,omitempty"`
	Line1      string    `json:"line1"`
	Line2      *string   `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      *string   `json:"state,omitempty"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func FromModel(m *models.Address) AddressDTO {
	return AddressDTO{
		ID:         m.ID,
		Label:      m.Label,
		FullName:   m.FullName,
		Phone:      m.Phone,
		Line1:      m.Line1,
		Line2:      m.Line2,
		City:       m.City,
		State:      m.State,
		PostalCode: m.PostalCode,
		Country:    m.Country,
		IsDefault:  m.IsDefault,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// Snapshot flattens the address for storage on an order.
func Snapshot(m *models.Address) dbtypes.JSONMap {
	out := dbtypes.JSONMap{
		"full_name":   m.FullName,
		"line1":       m.Line1,
		"city":        m.City,
		"postal_code": m.PostalCode,
		"country":     m.Country,
	}
	for key, value := range map[string]*string{"phone": m.Phone, "line2": m.Line2, "state": m.State} {
		if value != nil && *value != "" {
			out[key] = *value
		}
	}
	return out
}

type CreateAddressRequest struct {
	Label      *string `json:"label" validate:"omitempty,max=50"`
	FullName   string  `json:"full_name" validate:"required,max=120"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	State      *string `json:"state" validate:"omitempty,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,max=20"`
	Country    string  `json:"country" validate:"required,len=2,alpha"`
	IsDefault  bool    `json:"is_default"`
}

type UpdateAddressRequest struct {
	Label      *string `json:"label" validate:"omitempty,max=50"`
	FullName   *string `json:"full_name" validate:"omitempty,min=1,max=120"`
	Phone      *string `json:"phone" validate:"omitempty,max=32"`
	Line1      *string `json:"line1" validate:"omitempty,min=1,max=200"`
	Line2      *string `json:"line2" validate:"omitempty,max=200"`
	City       *string `json:"city" validate:"omitempty,min=1,max=100"`
	State      *string `json:"state" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code" validate:"omitempty,min=1,max=20"`
	Country    *string `json:"country" validate:"omitempty,len=2,alpha"`
	IsDefault  *bool   `json:"is_default"`
}
