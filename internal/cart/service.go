package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/checkout"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-api/pkg/db/types"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

const lineConstraint = "ux_cart_items_user_product_variant"

type productLoader interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error)
}

// Service exposes cart operations for the authenticated user.
type Service interface {
	Get(ctx context.Context, userID uint) (*CartDTO, error)
	AddItem(ctx context.Context, userID uint, input AddItemRequest) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uint, input UpdateItemRequest) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uint) (*CartDTO, error)
	Clear(ctx context.Context, userID uint) error
}

// ServiceParams groups cart dependencies. A nil Pricing uses checkout.DefaultPricing.
type ServiceParams struct {
	Repo     *Repository
	Products productLoader
	Pricing  *checkout.Pricing
}

type service struct {
	repo     *Repository
	products productLoader
	pricing  checkout.Pricing
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	pricing := checkout.DefaultPricing()
	if params.Pricing != nil {
		pricing = *params.Pricing
	}
	return &service{repo: params.Repo, products: params.Products, pricing: pricing}, nil
}

func (s *service) Get(ctx context.Context, userID uint) (*CartDTO, error) {
	rows, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart products")
	}

	out := &CartDTO{Items: make([]CartItemDTO, 0, len(rows))}
	lines := make([]checkout.Line, 0, len(rows))
	for _, row := range rows {
		item := CartItemDTO{
			ID:        row.ID,
			ProductID: row.ProductID,
			Quantity:  row.Quantity,
			Variant:   row.Variant,
			UnitPrice: decimal.Zero,
			LineTotal: decimal.Zero,
		}
		if p, ok := products[row.ProductID]; ok && p.Status.Visible() {
			line := checkout.Line{UnitPrice: p.Price, Quantity: row.Quantity}
			item.ProductName = p.Name
			item.ProductSlug = p.Slug
			item.ImageURL = p.ImageURL
			item.UnitPrice = p.Price
			item.LineTotal = line.Total()
			item.Stock = p.Stock
			item.Available = p.Stock >= row.Quantity
			lines = append(lines, line)
			out.ItemCount += row.Quantity
		}
		out.Items = append(out.Items, item)
	}
	out.Totals = s.pricing.Compute(lines, decimal.Zero)
	return out, nil
}

// AddItem merges quantities when the product and variant are already in the cart.
func (s *service) AddItem(ctx context.Context, userID uint, input AddItemRequest) (*CartDTO, error) {
	product, err := s.loadPurchasable(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	variant := dbtypes.JSONMap(input.Variant)
	key := variant.Key()

	existing, err := s.repo.FindByVariant(ctx, userID, product.ID, key)
	switch {
	case err == nil:
		quantity := existing.Quantity + input.Quantity
		if err := ensureStock(product, quantity); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateQuantity(ctx, existing.ID, quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := ensureStock(product, input.Quantity); err != nil {
			return nil, err
		}
		if len(variant) == 0 {
			variant = nil
		}
		item := &models.CartItem{
			UserID:     userID,
			ProductID:  product.ID,
			VariantKey: key,
			Variant:    variant,
			Quantity:   input.Quantity,
		}
		if err := s.repo.Create(ctx, item); err != nil {
			if db.IsUniqueViolation(err, lineConstraint) {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed concurrently; retry")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uint, input UpdateItemRequest) (*CartDTO, error) {
	item, err := s.repo.FindForUser(ctx, userID, itemID)
	if err != nil {
		return nil, mapItemError(err)
	}
	product, err := s.loadPurchasable(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if err := ensureStock(product, input.Quantity); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateQuantity(ctx, item.ID, input.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uint) (*CartDTO, error) {
	affected, err := s.repo.Delete(ctx, userID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.Get(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uint) error {
	if _, err := s.repo.Clear(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	return nil
}

func (s *service) loadPurchasable(ctx context.Context, productID uint) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.Status.Visible() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func ensureStock(product *models.Product, quantity int) error {
	return checkout.ValidateStock([]checkout.StockCheck{{
		ProductID:   product.ID,
		ProductName: product.Name,
		Available:   product.Stock,
		Requested:   quantity,
	}})
}

func mapItemError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
}
