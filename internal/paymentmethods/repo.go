package paymentmethods

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
)

// Repository persists stored payment references.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) ListForUser(ctx context.Context, userID uint) ([]models.PaymentMethod, error) {
	var rows []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindForUser(ctx context.Context, userID, id uint) (*models.PaymentMethod, error) {
	var row models.PaymentMethod
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PaymentMethod{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *Repository) Create(ctx context.Context, row *models.PaymentMethod) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Save(ctx context.Context, row *models.PaymentMethod) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) Delete(ctx context.Context, userID, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.PaymentMethod{})
	return res.RowsAffected, res.Error
}

func (r *Repository) ClearDefault(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentMethod{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Updates(map[string]any{"is_default": false, "updated_at": time.Now().UTC()}).Error
}

func (r *Repository) MarkDefault(ctx context.Context, userID, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentMethod{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"is_default": true, "updated_at": time.Now().UTC()}).Error
}

func (r *Repository) Newest(ctx context.Context, userID uint) (*models.PaymentMethod, error) {
	var row models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
