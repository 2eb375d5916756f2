package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/internal/addresses"
	"github.com/angelmondragon/storefront-api/pkg/checkout"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-api/pkg/db/types"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
)

const (
	orderNumberConstraint      = "ux_orders_order_number"
	defaultOrderNumberAttempts = 3
)

var errInsufficientStock = pkgerrors.New(pkgerrors.CodeBadRequest, "insufficient stock")

// Service places and manages orders.
type Service interface {
	Place(ctx context.Context, userID uint, input PlaceOrderRequest) (*OrderDTO, error)
	Cancel(ctx context.Context, userID, orderID uint) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uint, params pagination.Params) (pagination.Page[OrderDTO], error)
	GetForUser(ctx context.Context, userID uint, ref string) (*OrderDTO, error)
	List(ctx context.Context, filters AdminListFilters, params pagination.Params) (pagination.Page[OrderDTO], error)
	Get(ctx context.Context, orderID uint) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor outbox.ActorRef, orderID uint, status enums.OrderStatus) (*OrderDTO, error)
	UpdatePaymentStatus(ctx context.Context, actor outbox.ActorRef, orderID uint, status enums.PaymentStatus) (*OrderDTO, error)
}

// ServiceParams groups order dependencies. Optional fields fall back to
// NoCoupons, DefaultPricing, NewOrderNumber and three attempts.
type ServiceParams struct {
	Repo                Repository
	DB                  db.TxRunner
	Outbox              outboxPublisher
	Products            productLoader
	Addresses           addressLoader
	PaymentMethods      paymentMethodLoader
	Cart                cartStore
	Coupons             checkout.CouponResolver
	Pricing             *checkout.Pricing
	NumberGenerator     NumberGenerator
	OrderNumberAttempts int
	LowStockThreshold   int
	Logger              *logger.Logger
}

type service struct {
	repo           Repository
	tx             db.TxRunner
	outbox         outboxPublisher
	products       productLoader
	addresses      addressLoader
	paymentMethods paymentMethodLoader
	cart           cartStore
	coupons        checkout.CouponResolver
	pricing        checkout.Pricing
	newNumber      NumberGenerator
	attempts       int
	lowStock       int
	logg           *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case params.Products == nil:
		return nil, fmt.Errorf("product loader required")
	case params.Addresses == nil:
		return nil, fmt.Errorf("address loader required")
	case params.PaymentMethods == nil:
		return nil, fmt.Errorf("payment method loader required")
	case params.Cart == nil:
		return nil, fmt.Errorf("cart store required")
	}
	svc := &service{
		repo:           params.Repo,
		tx:             params.DB,
		outbox:         params.Outbox,
		products:       params.Products,
		addresses:      params.Addresses,
		paymentMethods: params.PaymentMethods,
		cart:           params.Cart,
		coupons:        params.Coupons,
		pricing:        checkout.DefaultPricing(),
		newNumber:      params.NumberGenerator,
		attempts:       params.OrderNumberAttempts,
		lowStock:       params.LowStockThreshold,
		logg:           params.Logger,
	}
	if svc.coupons == nil {
		svc.coupons = checkout.NoCoupons{}
	}
	if params.Pricing != nil {
		svc.pricing = *params.Pricing
	}
	if svc.newNumber == nil {
		svc.newNumber = NewOrderNumber
	}
	if svc.attempts <= 0 {
		svc.attempts = defaultOrderNumberAttempts
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	return svc, nil
}

type pricedLine struct {
	product  models.Product
	quantity int
	variant  dbtypes.JSONMap
}

// Place validates the lines against live inventory, prices them and commits
// the order, its items, the stock decrements and the order_created event in
// one transaction. The cart is cleared after commit.
func (s *service) Place(ctx context.Context, userID uint, input PlaceOrderRequest) (*OrderDTO, error) {
	requested, err := s.requestedLines(ctx, userID, input.Items)
	if err != nil {
		return nil, err
	}

	shipping, err := s.addresses.FindForUser(ctx, userID, input.ShippingAddressID)
	if err != nil {
		return nil, ownedLookupError(err, "shipping address not found")
	}
	billingID := shipping.ID
	if input.BillingAddressID != nil && *input.BillingAddressID != shipping.ID {
		billing, err := s.addresses.FindForUser(ctx, userID, *input.BillingAddressID)
		if err != nil {
			return nil, ownedLookupError(err, "billing address not found")
		}
		billingID = billing.ID
	}
	if input.PaymentMethodID != nil {
		if _, err := s.paymentMethods.FindForUser(ctx, userID, *input.PaymentMethodID); err != nil {
			return nil, ownedLookupError(err, "payment method not found")
		}
	}

	lines, err := s.priceLines(ctx, requested)
	if err != nil {
		return nil, err
	}

	checkoutLines := make([]checkout.Line, 0, len(lines))
	for _, line := range lines {
		checkoutLines = append(checkoutLines, checkout.Line{UnitPrice: line.product.Price, Quantity: line.quantity})
	}
	totals := s.pricing.Compute(checkoutLines, decimal.Zero)

	var couponCode *string
	if input.CouponCode != nil && strings.TrimSpace(*input.CouponCode) != "" {
		code := strings.ToUpper(strings.TrimSpace(*input.CouponCode))
		discount, err := s.coupons.Resolve(ctx, code, totals.Subtotal)
		if err != nil {
			return nil, err
		}
		couponCode = &code
		totals = s.pricing.Compute(checkoutLines, discount)
	}

	build := func(number string) *models.Order {
		order := &models.Order{
			OrderNumber:       number,
			UserID:            userID,
			Status:            enums.OrderStatusPending,
			PaymentStatus:     enums.PaymentStatusPending,
			Subtotal:          totals.Subtotal,
			Shipping:          totals.Shipping,
			Tax:               totals.Tax,
			Discount:          totals.Discount,
			Total:             totals.Total,
			CouponCode:        couponCode,
			ShippingAddressID: shipping.ID,
			BillingAddressID:  billingID,
			PaymentMethodID:   input.PaymentMethodID,
			ShippingSnapshot:  addresses.Snapshot(shipping),
			Notes:             input.Notes,
			Items:             make([]models.OrderItem, 0, len(lines)),
		}
		for _, line := range lines {
			order.Items = append(order.Items, models.OrderItem{
				ProductID:   line.product.ID,
				ProductName: line.product.Name,
				Quantity:    line.quantity,
				UnitPrice:   line.product.Price,
				LineTotal:   checkout.Line{UnitPrice: line.product.Price, Quantity: line.quantity}.Total(),
				Variant:     line.variant,
			})
		}
		return order
	}

	var placed *models.Order
	for attempt := 1; ; attempt++ {
		number, err := s.newNumber(time.Now().UTC())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
		}
		order := build(number)
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.persist(ctx, tx, order)
		})
		if err == nil {
			placed = order
			break
		}
		if db.IsUniqueViolation(err, orderNumberConstraint) && attempt < s.attempts {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"order_number": number, "attempt": attempt}), "order number collision, retrying")
			continue
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "place order")
	}

	if _, err := s.cart.Clear(ctx, userID); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID), "clear cart after order", err)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": placed.ID, "order_number": placed.OrderNumber, "total": placed.Total.String()})
	s.logg.Info(logCtx, "order placed")

	dto := FromModel(placed)
	return &dto, nil
}

func (s *service) persist(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.repo.WithTx(tx)
	if err := repo.CreateOrder(ctx, order); err != nil {
		return err
	}

	perProduct := map[uint]int{}
	productOrder := make([]uint, 0, len(order.Items))
	eventLines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		if _, seen := perProduct[item.ProductID]; !seen {
			productOrder = append(productOrder, item.ProductID)
		}
		perProduct[item.ProductID] += item.Quantity
		eventLines = append(eventLines, payloads.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	for _, productID := range productOrder {
		affected, err := repo.DecrementStock(ctx, productID, perProduct[productID])
		if err != nil {
			return err
		}
		if affected == 0 {
			return errInsufficientStock
		}
	}

	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID, Role: string(enums.RoleCustomer)},
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Total:       order.Total,
			Items:       eventLines,
		},
	})
	if err != nil {
		return err
	}

	if s.lowStock <= 0 {
		return nil
	}
	for _, productID := range productOrder {
		product, err := repo.ProductStock(ctx, productID)
		if err != nil {
			return err
		}
		if product.Stock > s.lowStock {
			continue
		}
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductLowStock,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Data: payloads.ProductLowStockEvent{
				ProductID: product.ID,
				Name:      product.Name,
				Stock:     product.Stock,
				Threshold: s.lowStock,
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *service) requestedLines(ctx context.Context, userID uint, items []PlaceOrderItem) ([]PlaceOrderItem, error) {
	if len(items) > 0 {
		for _, item := range items {
			if item.ProductID == 0 || item.Quantity < 1 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "each item needs a product id and a quantity of at least 1")
			}
		}
		return items, nil
	}
	rows, err := s.cart.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "cart is empty")
	}
	out := make([]PlaceOrderItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, PlaceOrderItem{ProductID: row.ProductID, Quantity: row.Quantity, Variant: row.Variant})
	}
	return out, nil
}

// priceLines re-reads every product and checks it is on sale with enough stock.
func (s *service) priceLines(ctx context.Context, items []PlaceOrderItem) ([]pricedLine, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	lines := make([]pricedLine, 0, len(items))
	requested := map[uint]int{}
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || !product.Status.Visible() {
			return nil, pkgerrors.Newf(pkgerrors.CodeBadRequest, "product %d is not available", item.ProductID)
		}
		requested[item.ProductID] += item.Quantity
		var variant dbtypes.JSONMap
		if len(item.Variant) > 0 {
			variant = dbtypes.JSONMap(item.Variant)
		}
		lines = append(lines, pricedLine{product: product, quantity: item.Quantity, variant: variant})
	}

	checks := make([]checkout.StockCheck, 0, len(requested))
	for _, id := range ids {
		qty, pending := requested[id]
		if !pending {
			continue
		}
		delete(requested, id)
		product := products[id]
		checks = append(checks, checkout.StockCheck{ProductID: id, ProductName: product.Name, Available: product.Stock, Requested: qty})
	}
	if err := checkout.ValidateStock(checks); err != nil {
		return nil, err
	}
	return lines, nil
}

// Cancel restores stock and refunds. Only the owner may cancel, and only
// while the order is pending or processing.
func (s *service) Cancel(ctx context.Context, userID, orderID uint) (*OrderDTO, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if order, err = repo.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if order.UserID != userID {
			return gorm.ErrRecordNotFound
		}
		return s.cancelLocked(ctx, tx, order, outbox.ActorRef{UserID: userID, Role: string(enums.RoleCustomer)})
	})
	if err != nil {
		return nil, mapOrderError(err, "cancel order")
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) cancelLocked(ctx context.Context, tx *gorm.DB, order *models.Order, actor outbox.ActorRef) error {
	if !order.Status.Cancellable() {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "order cannot be cancelled")
	}
	repo := s.repo.WithTx(tx)

	restocked := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		if err := repo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		restocked = append(restocked, payloads.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	now := time.Now().UTC()
	err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"status":         enums.OrderStatusCancelled,
		"payment_status": enums.PaymentStatusRefunded,
		"cancelled_at":   now,
	})
	if err != nil {
		return err
	}
	order.Status = enums.OrderStatusCancelled
	order.PaymentStatus = enums.PaymentStatusRefunded
	order.CancelledAt = &now

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &actor,
		Data: payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Restocked:   restocked,
		},
	})
}

func (s *service) ListForUser(ctx context.Context, userID uint, params pagination.Params) (pagination.Page[OrderDTO], error) {
	rows, total, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return toPage(rows, total, params), nil
}

// GetForUser accepts a numeric id or an order number.
func (s *service) GetForUser(ctx context.Context, userID uint, ref string) (*OrderDTO, error) {
	ref = strings.TrimSpace(ref)
	var (
		order *models.Order
		err   error
	)
	if id, parseErr := strconv.ParseUint(ref, 10, 64); parseErr == nil {
		order, err = s.repo.FindByID(ctx, uint(id))
	} else {
		order, err = s.repo.FindByNumber(ctx, ref)
	}
	if err != nil {
		return nil, mapOrderError(err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, filters AdminListFilters, params pagination.Params) (pagination.Page[OrderDTO], error) {
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return toPage(rows, total, params), nil
}

func (s *service) Get(ctx context.Context, orderID uint) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err, "load order")
	}
	dto := FromModel(order)
	return &dto, nil
}

// UpdateStatus advances one fulfillment step. Cancelling goes through the
// same stock restore as a customer cancellation.
func (s *service) UpdateStatus(ctx context.Context, actor outbox.ActorRef, orderID uint, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", status)
	}
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if order, err = repo.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if status == enums.OrderStatusCancelled {
			return s.cancelLocked(ctx, tx, order, actor)
		}
		from := order.Status
		if !from.CanAdvanceTo(status) {
			return pkgerrors.Newf(pkgerrors.CodeBadRequest, "cannot move order from %s to %s", from, status)
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": status}); err != nil {
			return err
		}
		order.Status = status
		return s.emitStatusChanged(ctx, tx, order, from, actor)
	})
	if err != nil {
		return nil, mapOrderError(err, "update order status")
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, actor outbox.ActorRef, orderID uint, status enums.PaymentStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid payment status %q", status)
	}
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if order, err = repo.LockOrder(ctx, orderID); err != nil {
			return err
		}
		if order.PaymentStatus == status {
			return nil
		}
		if order.PaymentStatus.Final() {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "payment status %s is final", order.PaymentStatus)
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"payment_status": status}); err != nil {
			return err
		}
		order.PaymentStatus = status
		return s.emitStatusChanged(ctx, tx, order, order.Status, actor)
	})
	if err != nil {
		return nil, mapOrderError(err, "update payment status")
	}
	dto := FromModel(order)
	return &dto, nil
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus, actor outbox.ActorRef) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			UserID:        order.UserID,
			From:          from,
			To:            order.Status,
			PaymentStatus: order.PaymentStatus,
		},
	})
}

func toPage(rows []models.Order, total int64, params pagination.Params) pagination.Page[OrderDTO] {
	items := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	return pagination.Page[OrderDTO]{Items: items, Meta: pagination.NewMeta(params, total)}
}

func ownedLookupError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeBadRequest, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, notFound)
}

func mapOrderError(err error, action string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
