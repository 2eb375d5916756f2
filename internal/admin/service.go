package admin

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

const (
	defaultLowStockThreshold = 5
	dashboardListLimit       = 10
)

type unreadCounter interface {
	CountByStatus(ctx context.Context, status enums.ContactStatus) (int64, error)
}

// Service assembles dashboard statistics.
type Service interface {
	Stats(ctx context.Context) (*DashboardDTO, error)
}

type service struct {
	repo      *Repository
	messages  unreadCounter
	threshold int
}

// NewService builds the dashboard service. A non-positive threshold uses the
// default of five units.
func NewService(repo *Repository, messages unreadCounter, lowStockThreshold int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admin repository required")
	}
	if messages == nil {
		return nil, fmt.Errorf("contact message counter required")
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = defaultLowStockThreshold
	}
	return &service{repo: repo, messages: messages, threshold: lowStockThreshold}, nil
}

func (s *service) Stats(ctx context.Context) (*DashboardDTO, error) {
	var (
		out DashboardDTO
		err error
	)
	out.LowStockThreshold = s.threshold

	if out.Totals.Users, err = s.repo.CountUsers(ctx); err != nil {
		return nil, wrap(err, "count users")
	}
	if out.Totals.Products, err = s.repo.CountProducts(ctx); err != nil {
		return nil, wrap(err, "count products")
	}
	if out.Totals.Orders, err = s.repo.CountOrders(ctx); err != nil {
		return nil, wrap(err, "count orders")
	}
	if out.Totals.Revenue, err = s.repo.Revenue(ctx); err != nil {
		return nil, wrap(err, "sum revenue")
	}
	if out.Totals.UnreadMessages, err = s.messages.CountByStatus(ctx, enums.ContactStatusNew); err != nil {
		return nil, wrap(err, "count messages")
	}
	if out.OrdersByStatus, err = s.repo.OrdersByStatus(ctx); err != nil {
		return nil, wrap(err, "group orders")
	}

	products, err := s.repo.LowStock(ctx, s.threshold, dashboardListLimit)
	if err != nil {
		return nil, wrap(err, "load low stock")
	}
	out.LowStock = make([]LowStockProduct, 0, len(products))
	for _, p := range products {
		out.LowStock = append(out.LowStock, LowStockProduct{ID: p.ID, Name: p.Name, Slug: p.Slug, Stock: p.Stock})
	}

	orders, err := s.repo.RecentOrders(ctx, dashboardListLimit)
	if err != nil {
		return nil, wrap(err, "load recent orders")
	}
	out.RecentOrders = make([]RecentOrder, 0, len(orders))
	for _, o := range orders {
		out.RecentOrders = append(out.RecentOrders, RecentOrder{
			ID:            o.ID,
			OrderNumber:   o.OrderNumber,
			UserID:        o.UserID,
			Status:        o.Status,
			PaymentStatus: o.PaymentStatus,
			Total:         o.Total,
			CreatedAt:     o.CreatedAt,
		})
	}
	return &out, nil
}

func wrap(err error, msg string) error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
