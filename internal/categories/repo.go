package categories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns categories ordered for display. activeOnly drops hidden rows.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	query := r.db.WithContext(ctx).Model(&models.Category{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []models.Category
	err := query.Order("sort_order ASC").Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Category, error) {
	var row models.Category
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var row models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CountActiveProducts counts storefront-visible products in the category.
func (r *Repository) CountActiveProducts(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("category_id = ? AND status = ?", categoryID, enums.ProductStatusActive).
		Count(&count).Error
	return count, err
}

// CountReferences counts product rows, deleted ones included, and child
// categories that point at the category.
func (r *Repository) CountReferences(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", categoryID).Count(&count).Error
	if err != nil {
		return 0, err
	}
	var children int64
	err = r.db.WithContext(ctx).Model(&models.Category{}).Where("parent_id = ?", categoryID).Count(&children).Error
	return count + children, err
}

func (r *Repository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *Repository) Save(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *Repository) Delete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Category{})
	return res.RowsAffected, res.Error
}
