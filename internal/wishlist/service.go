package wishlist

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-api/internal/products"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

type productLoader interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uint) (map[uint]models.Product, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	Products     productLoader
}

// Service exposes business rules for wishlist management.
type Service interface {
	List(ctx context.Context, userID uint) ([]WishlistItemDTO, error)
	Add(ctx context.Context, userID, productID uint) ([]WishlistItemDTO, error)
	Remove(ctx context.Context, userID, productID uint) error
	Contains(ctx context.Context, userID, productID uint) (ContainsDTO, error)
}

type service struct {
	repo     *Repository
	products productLoader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, fmt.Errorf("wishlist repo is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader is required")
	}
	return &service{repo: params.WishlistRepo, products: params.Products}, nil
}

// List returns wishlist entries whose product is still on sale.
func (s *service) List(ctx context.Context, userID uint) ([]WishlistItemDTO, error) {
	rows, err := s.repo.ListItems(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wishlist")
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wishlist products")
	}

	out := make([]WishlistItemDTO, 0, len(rows))
	for _, row := range rows {
		p, ok := products[row.ProductID]
		if !ok || !p.Status.Visible() {
			continue
		}
		out = append(out, WishlistItemDTO{Product: product.FromModel(&p), CreatedAt: row.CreatedAt})
	}
	return out, nil
}

// Add is idempotent: an existing entry still answers with the current list.
func (s *service) Add(ctx context.Context, userID, productID uint) ([]WishlistItemDTO, error) {
	if productID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !p.Status.Visible() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.repo.AddItem(ctx, userID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add wishlist item")
	}
	return s.List(ctx, userID)
}

// Remove drops the wishlist entry regardless of prior state.
func (s *service) Remove(ctx context.Context, userID, productID uint) error {
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove wishlist item")
	}
	return nil
}

func (s *service) Contains(ctx context.Context, userID, productID uint) (ContainsDTO, error) {
	ok, err := s.repo.Contains(ctx, userID, productID)
	if err != nil {
		return ContainsDTO{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check wishlist")
	}
	return ContainsDTO{ProductID: productID, InWishlist: ok}, nil
}
