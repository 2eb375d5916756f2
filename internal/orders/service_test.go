package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/internal/addresses"
	"github.com/angelmondragon/storefront-api/internal/cart"
	"github.com/angelmondragon/storefront-api/internal/paymentmethods"
	product "github.com/angelmondragon/storefront-api/internal/products"
	"github.com/angelmondragon/storefront-api/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
)

const (
	buyer    = uint(11)
	stranger = uint(12)
)

var admin = outbox.ActorRef{UserID: 1, Role: string(enums.RoleAdmin)}

type fixture struct {
	svc     Service
	conn    *gorm.DB
	address *models.Address
	params  ServiceParams
}

func newFixture(t *testing.T, mutate func(*ServiceParams)) *fixture {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()

	address := &models.Address{UserID: buyer, FullName: "Ada Buyer", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US", IsDefault: true}
	require.NoError(t, conn.Create(address).Error)

	params := ServiceParams{
		Repo:              NewRepository(conn),
		DB:                client,
		Outbox:            outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Products:          product.NewRepository(conn),
		Addresses:         addresses.NewRepository(conn),
		PaymentMethods:    paymentmethods.NewRepository(conn),
		Cart:              cart.NewRepository(conn),
		LowStockThreshold: 2,
	}
	if mutate != nil {
		mutate(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return &fixture{svc: svc, conn: conn, address: address, params: params}
}

func (f *fixture) product(t *testing.T, slug, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: slug, Slug: slug, Price: decimal.RequireFromString(price), Stock: stock, Status: enums.ProductStatusActive, RatingAverage: decimal.Zero}
	require.NoError(t, f.conn.Create(p).Error)
	return p
}

func (f *fixture) stock(t *testing.T, id uint) (int, int) {
	t.Helper()
	var p models.Product
	require.NoError(t, f.conn.First(&p, id).Error)
	return p.Stock, p.SoldCount
}

func (f *fixture) events(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func (f *fixture) place(t *testing.T, items ...PlaceOrderItem) *OrderDTO {
	t.Helper()
	order, err := f.svc.Place(context.Background(), buyer, PlaceOrderRequest{Items: items, ShippingAddressID: f.address.ID})
	require.NoError(t, err)
	return order
}

func TestPlaceComputesTotalsAndDecrementsStock(t *testing.T) {
	f := newFixture(t, nil)
	mug := f.product(t, "mug", "10.00", 5)

	order := f.place(t, PlaceOrderItem{ProductID: mug.ID, Quantity: 2, Variant: map[string]string{"color": "blue"}})

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "20", order.Subtotal.String())
	assert.Equal(t, "9.99", order.Shipping.String())
	assert.Equal(t, "1.6", order.Tax.String())
	assert.Equal(t, "31.59", order.Total.String())
	assert.Regexp(t, `^ORD-\d{4}-[A-Z2-7]{8}$`, order.OrderNumber)
	assert.Equal(t, f.address.ID, order.BillingAddressID)
	assert.Equal(t, "Springfield", order.ShippingAddress["city"])
	require.Len(t, order.Items, 1)
	assert.Equal(t, "blue", order.Items[0].Variant["color"])
	assert.Equal(t, "20", order.Items[0].LineTotal.String())

	stock, sold := f.stock(t, mug.ID)
	assert.Equal(t, 3, stock)
	assert.Equal(t, 2, sold)
	assert.Equal(t, int64(1), f.events(t, enums.EventOrderCreated))
	assert.Equal(t, int64(0), f.events(t, enums.EventProductLowStock))
}

func TestPlaceEmitsLowStockAtThreshold(t *testing.T) {
	f := newFixture(t, nil)
	lamp := f.product(t, "lamp", "40.00", 3)

	f.place(t, PlaceOrderItem{ProductID: lamp.ID, Quantity: 1})
	assert.Equal(t, int64(1), f.events(t, enums.EventProductLowStock))
}

func TestPlaceRejectsInsufficientStockWithoutSideEffects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	chair := f.product(t, "chair", "50.00", 3)

	_, err := f.svc.Place(ctx, buyer, PlaceOrderRequest{
		Items: []PlaceOrderItem{
			{ProductID: chair.ID, Quantity: 2, Variant: map[string]string{"color": "oak"}},
			{ProductID: chair.ID, Quantity: 2, Variant: map[string]string{"color": "ash"}},
		},
		ShippingAddressID: f.address.ID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	stock, _ := f.stock(t, chair.ID)
	assert.Equal(t, 3, stock)
	var orders int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)
	assert.Equal(t, int64(0), f.events(t, enums.EventOrderCreated))
}

// concurrentBuyer hands out the stock it read, then lets another checkout
// take units before the order is persisted.
type concurrentBuyer struct {
	productLoader
	conn      *gorm.DB
	remaining int
}

func (c concurrentBuyer) FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error) {
	out, err := c.productLoader.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return out, c.conn.Model(&models.Product{}).Where("id IN ?", ids).Update("stock", c.remaining).Error
}

func TestPlaceFailsWhenStockIsTakenBeforePersist(t *testing.T) {
	f := newFixture(t, nil)
	params := f.params
	params.Products = concurrentBuyer{productLoader: params.Products, conn: f.conn, remaining: 1}
	svc, err := NewService(params)
	require.NoError(t, err)
	f.svc = svc
	ctx := context.Background()
	stool := f.product(t, "stool", "25.00", 3)

	_, err = f.svc.Place(ctx, buyer, PlaceOrderRequest{
		Items:             []PlaceOrderItem{{ProductID: stool.ID, Quantity: 2}},
		ShippingAddressID: f.address.ID,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	stock, sold := f.stock(t, stool.ID)
	assert.Equal(t, 1, stock)
	assert.Zero(t, sold)
	var orders, items int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, f.conn.Model(&models.OrderItem{}).Count(&items).Error)
	assert.Zero(t, orders)
	assert.Zero(t, items)
	assert.Zero(t, f.events(t, enums.EventOrderCreated))
}

func TestPlaceValidatesOwnershipAndAvailability(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	desk := f.product(t, "desk", "90.00", 4)
	draft := f.product(t, "draft", "9.00", 4)
	require.NoError(t, f.conn.Model(draft).Update("status", enums.ProductStatusDraft).Error)

	_, err := f.svc.Place(ctx, stranger, PlaceOrderRequest{Items: []PlaceOrderItem{{ProductID: desk.ID, Quantity: 1}}, ShippingAddressID: f.address.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest), "address of another user")

	_, err = f.svc.Place(ctx, buyer, PlaceOrderRequest{Items: []PlaceOrderItem{{ProductID: draft.ID, Quantity: 1}}, ShippingAddressID: f.address.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest), "draft product")

	missingMethod := uint(999)
	_, err = f.svc.Place(ctx, buyer, PlaceOrderRequest{Items: []PlaceOrderItem{{ProductID: desk.ID, Quantity: 1}}, ShippingAddressID: f.address.ID, PaymentMethodID: &missingMethod})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest), "unknown payment method")

	_, err = f.svc.Place(ctx, buyer, PlaceOrderRequest{ShippingAddressID: f.address.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest), "empty cart")
}

func TestPlaceFromCartClearsCart(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	shirt := f.product(t, "shirt", "60.00", 10)
	require.NoError(t, f.conn.Create(&models.CartItem{UserID: buyer, ProductID: shirt.ID, VariantKey: "", Quantity: 2}).Error)

	order, err := f.svc.Place(ctx, buyer, PlaceOrderRequest{ShippingAddressID: f.address.ID})
	require.NoError(t, err)
	assert.Equal(t, "120", order.Subtotal.String())
	assert.True(t, order.Shipping.IsZero())

	var left int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Where("user_id = ?", buyer).Count(&left).Error)
	assert.Zero(t, left)
}

func TestPlaceRetriesOrderNumberCollision(t *testing.T) {
	numbers := []string{"ORD-2025-AAAAAAAA", "ORD-2025-AAAAAAAA", "ORD-2025-BBBBBBBB"}
	calls := 0
	f := newFixture(t, func(p *ServiceParams) {
		p.NumberGenerator = func(time.Time) (string, error) {
			n := numbers[calls%len(numbers)]
			calls++
			return n, nil
		}
	})
	pen := f.product(t, "pen", "2.00", 10)

	first := f.place(t, PlaceOrderItem{ProductID: pen.ID, Quantity: 1})
	second := f.place(t, PlaceOrderItem{ProductID: pen.ID, Quantity: 1})

	assert.Equal(t, "ORD-2025-AAAAAAAA", first.OrderNumber)
	assert.Equal(t, "ORD-2025-BBBBBBBB", second.OrderNumber)
	assert.Equal(t, 3, calls)
	stock, _ := f.stock(t, pen.ID)
	assert.Equal(t, 8, stock, "the collided attempt rolled back its decrement")
}

func TestCancelRestoresStockAndRefunds(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	book := f.product(t, "book", "15.00", 6)
	order := f.place(t, PlaceOrderItem{ProductID: book.ID, Quantity: 4})

	_, err := f.svc.Cancel(ctx, stranger, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	cancelled, err := f.svc.Cancel(ctx, buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, enums.PaymentStatusRefunded, cancelled.PaymentStatus)
	assert.NotNil(t, cancelled.CancelledAt)

	stock, sold := f.stock(t, book.ID)
	assert.Equal(t, 6, stock)
	assert.Equal(t, 0, sold)
	assert.Equal(t, int64(1), f.events(t, enums.EventOrderCancelled))

	_, err = f.svc.Cancel(ctx, buyer, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest), "already cancelled")

	_, err = f.svc.UpdatePaymentStatus(ctx, admin, order.ID, enums.PaymentStatusPaid)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "refunds are final")
}

func TestAdminStatusTransitions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	kettle := f.product(t, "kettle", "30.00", 5)
	order := f.place(t, PlaceOrderItem{ProductID: kettle.ID, Quantity: 1})

	_, err := f.svc.UpdateStatus(ctx, admin, order.ID, enums.OrderStatusDelivered)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest), "cannot skip steps")

	for _, next := range []enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusShipped, enums.OrderStatusDelivered} {
		updated, err := f.svc.UpdateStatus(ctx, admin, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}
	assert.Equal(t, int64(3), f.events(t, enums.EventOrderStatusChanged))

	stockBefore, soldBefore := f.stock(t, kettle.ID)
	_, err = f.svc.Cancel(ctx, buyer, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest), "delivered orders stay delivered")
	stockAfter, soldAfter := f.stock(t, kettle.ID)
	assert.Equal(t, stockBefore, stockAfter)
	assert.Equal(t, soldBefore, soldAfter)
	var stored models.Order
	require.NoError(t, f.conn.First(&stored, order.ID).Error)
	assert.Equal(t, enums.OrderStatusDelivered, stored.Status)
	assert.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
	assert.Nil(t, stored.CancelledAt)
	assert.Zero(t, f.events(t, enums.EventOrderCancelled))

	paid, err := f.svc.UpdatePaymentStatus(ctx, admin, order.ID, enums.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, paid.PaymentStatus)

	_, err = f.svc.UpdateStatus(ctx, admin, order.ID, enums.OrderStatus("lost"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAdminCancelRestoresStock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	rug := f.product(t, "rug", "70.00", 2)
	order := f.place(t, PlaceOrderItem{ProductID: rug.ID, Quantity: 2})

	_, err := f.svc.UpdateStatus(ctx, admin, order.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)
	cancelled, err := f.svc.UpdateStatus(ctx, admin, order.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	stock, _ := f.stock(t, rug.ID)
	assert.Equal(t, 2, stock)
}

func TestReadsScopeToOwner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	cup := f.product(t, "cup", "5.00", 20)
	order := f.place(t, PlaceOrderItem{ProductID: cup.ID, Quantity: 1})
	f.place(t, PlaceOrderItem{ProductID: cup.ID, Quantity: 2})

	byNumber, err := f.svc.GetForUser(ctx, buyer, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)

	byID, err := f.svc.GetForUser(ctx, buyer, "1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byID.ID)

	_, err = f.svc.GetForUser(ctx, stranger, order.OrderNumber)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	mine, err := f.svc.ListForUser(ctx, buyer, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Meta.Total)

	theirs, err := f.svc.ListForUser(ctx, stranger, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, theirs.Items)

	pending := enums.OrderStatusPending
	all, err := f.svc.List(ctx, AdminListFilters{Status: &pending}, pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Meta.Total)

	_, err = f.svc.Get(ctx, 404)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
