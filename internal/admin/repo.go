package admin

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
)

// Repository runs the read-only aggregates behind the dashboard.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("status <> ?", enums.UserStatusDeleted).Count(&count).Error
	return count, err
}

func (r *Repository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Where("status <> ?", enums.ProductStatusDeleted).Count(&count).Error
	return count, err
}

func (r *Repository) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&count).Error
	return count, err
}

// Revenue sums totals of paid orders that were not cancelled.
func (r *Repository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_status = ? AND status <> ?", enums.PaymentStatusPaid, enums.OrderStatusCancelled).
		Select("CAST(COALESCE(SUM(total), 0) AS TEXT)").
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

type statusCount struct {
	Status enums.OrderStatus
	Count  int64
}

func (r *Repository) OrdersByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[enums.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

func (r *Repository) LowStock(ctx context.Context, threshold, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("status = ? AND stock <= ?", enums.ProductStatusActive, threshold).
		Order("stock ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) RecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
