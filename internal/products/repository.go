package product

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
)

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func preloadImages(db *gorm.DB) *gorm.DB {
	return db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC").Order("id ASC")
	})
}

// FindByID loads the product and its images, whatever its status.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Scopes(preloadImages).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveBySlug returns an active product by slug.
func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Scopes(preloadImages, activeScope).
		Where("slug = ?", slug).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads every product in ids keyed by id. Missing ids are absent
// from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	out := make(map[uint]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Save writes every column of an existing product row.
func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Images").Save(product).Error
}

// UpdateStock overwrites the stock count.
func (r *Repository) UpdateStock(ctx context.Context, id uint, stock int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND status <> ?", id, enums.ProductStatusDeleted).
		Updates(map[string]any{"stock": stock, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// SoftDelete marks the product deleted.
func (r *Repository) SoftDelete(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND status <> ?", id, enums.ProductStatusDeleted).
		Updates(map[string]any{"status": enums.ProductStatusDeleted, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

// CategoryExists reports whether a category row with id exists.
func (r *Repository) CategoryExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List returns one page of products. Storefront callers pass adminView=false
// and only see active products.
func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params, adminView bool) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	switch {
	case !adminView:
		query = query.Scopes(activeScope)
	case filters.Status != nil:
		query = query.Where("status = ?", *filters.Status)
	default:
		query = query.Where("status <> ?", enums.ProductStatusDeleted)
	}

	if filters.CategoryID != nil {
		query = query.Where("category_id = ?", *filters.CategoryID)
	}
	if slug := strings.TrimSpace(filters.CategorySlug); slug != "" {
		query = query.Where("category_id IN (?)", r.db.Model(&models.Category{}).Select("id").Where("slug = ?", slug))
	}
	if filters.MinPrice != nil {
		query = query.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("price <= ?", *filters.MaxPrice)
	}
	if filters.Featured != nil {
		query = query.Where("is_featured = ?", *filters.Featured)
	}
	if filters.InStock {
		query = query.Where("stock > 0")
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("lower(name) LIKE ? OR lower(coalesce(description, '')) LIKE ? OR lower(coalesce(sku, '')) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := query.
		Scopes(sortScope(filters.Sort), pagination.Scope(params), preloadImages).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListCurated returns up to limit active products shaped by scope.
func (r *Repository) ListCurated(ctx context.Context, limit int, scopes ...func(*gorm.DB) *gorm.DB) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Scopes(activeScope).
		Scopes(scopes...).
		Scopes(preloadImages).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// AddImage appends an image row.
func (r *Repository) AddImage(ctx context.Context, image *models.ProductImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// NextImagePosition returns one past the highest image position of productID.
func (r *Repository) NextImagePosition(ctx context.Context, productID uint) (int, error) {
	var next int
	err := r.db.WithContext(ctx).
		Model(&models.ProductImage{}).
		Where("product_id = ?", productID).
		Select("COALESCE(MAX(position), -1) + 1").
		Scan(&next).Error
	return next, err
}

// DeleteImage removes an image that belongs to productID.
func (r *Repository) DeleteImage(ctx context.Context, productID, imageID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", imageID, productID).
		Delete(&models.ProductImage{})
	return res.RowsAffected, res.Error
}
