package settings

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) List(ctx context.Context, publicOnly bool) ([]models.StoreSetting, error) {
	query := r.db.WithContext(ctx).Order("key ASC")
	if publicOnly {
		query = query.Where("is_public = ?", true)
	}
	var rows []models.StoreSetting
	err := query.Find(&rows).Error
	return rows, err
}

// Upsert writes the value and visibility of key, inserting the row when absent.
func (r *Repository) Upsert(ctx context.Context, setting *models.StoreSetting) error {
	setting.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "is_public", "updated_at"}),
		}).
		Create(setting).Error
}
