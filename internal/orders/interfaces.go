package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
)

// Repository defines persistence operations for orders and their stock effects.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	DecrementStock(ctx context.Context, productID uint, qty int) (int64, error)
	RestoreStock(ctx context.Context, productID uint, qty int) error
	ProductStock(ctx context.Context, productID uint) (*models.Product, error)
	LockOrder(ctx context.Context, orderID uint) (*models.Order, error)
	FindByID(ctx context.Context, orderID uint) (*models.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListForUser(ctx context.Context, userID uint, params pagination.Params) ([]models.Order, int64, error)
	List(ctx context.Context, filters AdminListFilters, params pagination.Params) ([]models.Order, int64, error)
	UpdateOrder(ctx context.Context, orderID uint, updates map[string]any) error
}

// AdminListFilters narrows the admin order listing.
type AdminListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	UserID        *uint
	Search        string
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error)
}

type addressLoader interface {
	FindForUser(ctx context.Context, userID, id uint) (*models.Address, error)
}

type paymentMethodLoader interface {
	FindForUser(ctx context.Context, userID, id uint) (*models.PaymentMethod, error)
}

type cartStore interface {
	List(ctx context.Context, userID uint) ([]models.CartItem, error)
	Clear(ctx context.Context, userID uint) (int64, error)
}
