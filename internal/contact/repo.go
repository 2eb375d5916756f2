package contact

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, msg *models.ContactMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*models.ContactMessage, error) {
	var msg models.ContactMessage
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// List returns newest messages first, optionally narrowed to one status.
func (r *Repository) List(ctx context.Context, status *enums.ContactStatus, params pagination.Params) ([]models.ContactMessage, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ContactMessage{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ContactMessage
	if err := query.Order("created_at DESC, id DESC").Scopes(pagination.Scope(params)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uint, status enums.ContactStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.ContactMessage{}).Where("id = ?", id).Update("status", status)
	return res.RowsAffected, res.Error
}

func (r *Repository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.ContactMessage{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

// CountByStatus backs the unread badge on the admin dashboard.
func (r *Repository) CountByStatus(ctx context.Context, status enums.ContactStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ContactMessage{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
