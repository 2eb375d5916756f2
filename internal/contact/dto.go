package contact

import (
	"time"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
)

type MessageDTO struct {
	ID        uint                `json:"id"`
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	Subject   *string             `json:"subject,omitempty"`
	Message   string              `json:"message"`
	Status    enums.ContactStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

func FromModel(m *models.ContactMessage) MessageDTO {
	return MessageDTO{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Subject:   m.Subject,
		Message:   m.Message,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}

// SubmitRequest is the public contact form payload.
type SubmitRequest struct {
	Name    string  `json:"name" validate:"required,max=120"`
	Email   string  `json:"email" validate:"required,email,max=254"`
	Subject *string `json:"subject" validate:"omitempty,max=200"`
	Message string  `json:"message" validate:"required,min=5,max=5000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new read replied archived"`
}
