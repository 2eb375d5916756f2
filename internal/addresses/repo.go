package addresses

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
)

// Repository persists user addresses. Every query is scoped to the owner.
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

// ListForUser returns the default address first, then newest first.
func (r *Repository) ListForUser(ctx context.Context, userID uint) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) FindForUser(ctx context.Context, userID, id uint) (*models.Address, error) {
	var row models.Address
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Address{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *Repository) Create(ctx context.Context, row *models.Address) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Save(ctx context.Context, row *models.Address) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) Delete(ctx context.Context, userID, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Address{})
	return res.RowsAffected, res.Error
}

// ClearDefault unsets is_default on every address of the user.
func (r *Repository) ClearDefault(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Updates(map[string]any{"is_default": false, "updated_at": time.Now().UTC()}).Error
}

func (r *Repository) MarkDefault(ctx context.Context, userID, id uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"is_default": true, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// Newest returns the most recently created address of the user.
func (r *Repository) Newest(ctx context.Context, userID uint) (*models.Address, error) {
	var row models.Address
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
