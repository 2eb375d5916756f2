package reviews

import (
	"time"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
)

type ReviewDTO struct {
	ID         uint               `json:"id"`
	ProductID  uint               `json:"product_id"`
	UserID     uint               `json:"user_id"`
	AuthorName string             `json:"author_name,omitempty"`
	Rating     int                `json:"rating"`
	Title      *string            `json:"title,omitempty"`
	Body       *string            `json:"body,omitempty"`
	Status     enums.ReviewStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

func FromModel(m *models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        m.ID,
		ProductID: m.ProductID,
		UserID:    m.UserID,
		Rating:    m.Rating,
		Title:     m.Title,
		Body:      m.Body,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type CreateReviewRequest struct {
	Rating int     `json:"rating" validate:"required,min=1,max=5"`
	Title  *string `json:"title" validate:"omitempty,max=200"`
	Body   *string `json:"body" validate:"omitempty,max=5000"`
}

type UpdateReviewRequest struct {
	Rating *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Title  *string `json:"title" validate:"omitempty,max=200"`
	Body   *string `json:"body" validate:"omitempty,max=5000"`
}

type ModerateRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}
