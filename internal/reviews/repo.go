package reviews

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
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

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListFilters narrows the moderation queue.
type ListFilters struct {
	ProductID *uint
	Status    *enums.ReviewStatus
}

// List returns a page of reviews newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Review, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Review{})
	if filters.ProductID != nil {
		query = query.Where("product_id = ?", *filters.ProductID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Review
	err := query.Order("created_at DESC").Order("id DESC").Scopes(pagination.Scope(params)).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Review, error) {
	var row models.Review
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, row *models.Review) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Save(ctx context.Context, row *models.Review) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id).Error
}

// AuthorNames maps user ids to display names.
func (r *Repository) AuthorNames(ctx context.Context, userIDs []uint) (map[uint]string, error) {
	out := make(map[uint]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Select("id", "first_name", "last_name").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		name := u.FirstName
		if u.LastName != "" {
			name += " " + string([]rune(u.LastName)[:1]) + "."
		}
		out[u.ID] = name
	}
	return out, nil
}

type ratingAggregate struct {
	Total int64 `gorm:"column:total"`
	Count int64 `gorm:"column:count"`
}

// RecomputeRating rewrites the product's rating aggregate from its approved reviews.
func (r *Repository) RecomputeRating(ctx context.Context, productID uint) error {
	var agg ratingAggregate
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COALESCE(SUM(rating), 0) AS total, COUNT(*) AS count").
		Where("product_id = ? AND status = ?", productID, enums.ReviewStatusApproved).
		Scan(&agg).Error
	if err != nil {
		return err
	}

	average := decimal.Zero
	if agg.Count > 0 {
		average = decimal.NewFromInt(agg.Total).Div(decimal.NewFromInt(agg.Count)).Round(2)
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"rating_average": average,
			"rating_count":   agg.Count,
			"updated_at":     time.Now().UTC(),
		}).Error
}
