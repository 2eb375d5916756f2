package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
	"github.com/angelmondragon/storefront-api/pkg/types"
)

const slugConstraint = "ux_products_slug"

// Service exposes the storefront catalog and admin product management.
type Service interface {
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[ProductDTO], error)
	Search(ctx context.Context, query string, params pagination.Params) (pagination.Page[ProductDTO], error)
	Featured(ctx context.Context, limit int) ([]ProductDTO, error)
	NewArrivals(ctx context.Context, limit int) ([]ProductDTO, error)
	FlashSale(ctx context.Context, limit int) ([]ProductDTO, error)
	BestSelling(ctx context.Context, limit int) ([]ProductDTO, error)
	Related(ctx context.Context, productID uint, limit int) ([]ProductDTO, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	GetByID(ctx context.Context, id uint) (*ProductDTO, error)

	AdminList(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[ProductDTO], error)
	AdminGet(ctx context.Context, id uint) (*ProductDTO, error)
	Create(ctx context.Context, input CreateProductRequest) (*ProductDTO, error)
	Update(ctx context.Context, id uint, input UpdateProductRequest) (*ProductDTO, error)
	Delete(ctx context.Context, id uint) error
	UpdateStock(ctx context.Context, id uint, stock int) (*ProductDTO, error)
	AddImage(ctx context.Context, productID uint, input AddImageRequest) (*ProductDTO, error)
	RemoveImage(ctx context.Context, productID, imageID uint) error
}

// ServiceParams wires the product service. Outbox and DB are needed only for
// low-stock events; without them stock changes emit nothing.
type ServiceParams struct {
	Repo              *Repository
	DB                db.TxRunner
	Outbox            outbox.Emitter
	LowStockThreshold int
}

type service struct {
	repo     *Repository
	tx       db.TxRunner
	outbox   outbox.Emitter
	lowStock int
	now      func() time.Time
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Outbox != nil && params.DB == nil {
		return nil, fmt.Errorf("transaction runner required with an outbox")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.DB,
		outbox:   params.Outbox,
		lowStock: params.LowStockThreshold,
		now:      time.Now,
	}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[ProductDTO], error) {
	filters.Status = nil
	return s.list(ctx, filters, params, false)
}

func (s *service) Search(ctx context.Context, query string, params pagination.Params) (pagination.Page[ProductDTO], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return pagination.Page[ProductDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	return s.list(ctx, ListFilters{Search: query}, params, false)
}

func (s *service) AdminList(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[ProductDTO], error) {
	return s.list(ctx, filters, params, true)
}

func (s *service) list(ctx context.Context, filters ListFilters, params pagination.Params, adminView bool) (pagination.Page[ProductDTO], error) {
	rows, total, err := s.repo.List(ctx, filters, params, adminView)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return pagination.Page[ProductDTO]{Items: fromModels(rows), Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Featured(ctx context.Context, limit int) ([]ProductDTO, error) {
	return s.curated(ctx, limit, func(db *gorm.DB) *gorm.DB {
		return db.Where("is_featured = ?", true).Order("created_at DESC").Order("id DESC")
	})
}

func (s *service) NewArrivals(ctx context.Context, limit int) ([]ProductDTO, error) {
	return s.curated(ctx, limit, sortScope(enums.ProductSortNewest))
}

func (s *service) FlashSale(ctx context.Context, limit int) ([]ProductDTO, error) {
	return s.curated(ctx, limit, flashSaleScope(s.now().UTC()), func(db *gorm.DB) *gorm.DB {
		return db.Order("flash_sale_ends_at ASC").Order("id ASC")
	})
}

func (s *service) BestSelling(ctx context.Context, limit int) ([]ProductDTO, error) {
	return s.curated(ctx, limit, sortScope(enums.ProductSortPopular))
}

// Related lists active products of the same category, excluding productID.
func (s *service) Related(ctx context.Context, productID uint, limit int) ([]ProductDTO, error) {
	product, err := s.load(ctx, productID, false)
	if err != nil {
		return nil, err
	}
	if product.CategoryID == nil {
		return []ProductDTO{}, nil
	}
	categoryID := *product.CategoryID
	return s.curated(ctx, limit, func(db *gorm.DB) *gorm.DB {
		return db.Where("category_id = ? AND id <> ?", categoryID, productID).
			Order("sold_count DESC").Order("id DESC")
	})
}

func (s *service) curated(ctx context.Context, limit int, scopes ...func(*gorm.DB) *gorm.DB) ([]ProductDTO, error) {
	rows, err := s.repo.ListCurated(ctx, curatedLimit(limit), scopes...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return fromModels(rows), nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.repo.FindActiveBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) GetByID(ctx context.Context, id uint) (*ProductDTO, error) {
	product, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) AdminGet(ctx context.Context, id uint) (*ProductDTO, error) {
	product, err := s.load(ctx, id, true)
	if err != nil {
		return nil, err
	}
	dto := FromModel(product)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateProductRequest) (*ProductDTO, error) {
	if err := validatePrices(input.Price, input.CompareAtPrice); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = types.Slugify(input.Name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug could not be derived from name")
	}
	status := enums.ProductStatusActive
	if input.Status != "" {
		status = enums.ProductStatus(input.Status)
	}

	product := &models.Product{
		CategoryID:      input.CategoryID,
		Name:            strings.TrimSpace(input.Name),
		Slug:            slug,
		Description:     input.Description,
		SKU:             input.SKU,
		Price:           input.Price.Round(2),
		CompareAtPrice:  roundPtr(input.CompareAtPrice),
		Stock:           input.Stock,
		ImageURL:        input.ImageURL,
		IsFeatured:      input.IsFeatured,
		IsFlashSale:     input.IsFlashSale,
		FlashSaleEndsAt: utcPtr(input.FlashSaleEndsAt),
		Status:          status,
		RatingAverage:   decimal.Zero,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, mapWriteError(err, "create product")
	}
	return s.AdminGet(ctx, product.ID)
}

func (s *service) Update(ctx context.Context, id uint, input UpdateProductRequest) (*ProductDTO, error) {
	product, err := s.load(ctx, id, true)
	if err != nil {
		return nil, err
	}

	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = input.CategoryID
	}
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		product.Slug = strings.TrimSpace(*input.Slug)
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.SKU != nil {
		product.SKU = input.SKU
	}
	if input.Price != nil {
		product.Price = input.Price.Round(2)
	}
	if input.CompareAtPrice != nil {
		product.CompareAtPrice = roundPtr(input.CompareAtPrice)
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if input.IsFlashSale != nil {
		product.IsFlashSale = *input.IsFlashSale
	}
	if input.FlashSaleEndsAt != nil {
		product.FlashSaleEndsAt = utcPtr(input.FlashSaleEndsAt)
	}
	if input.Status != nil {
		product.Status = enums.ProductStatus(*input.Status)
	}
	if err := validatePrices(product.Price, product.CompareAtPrice); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, product); err != nil {
		return nil, mapWriteError(err, "update product")
	}
	return s.AdminGet(ctx, id)
}

// Delete soft deletes the product. Order history keeps its snapshot.
func (s *service) Delete(ctx context.Context, id uint) error {
	affected, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) UpdateStock(ctx context.Context, id uint, stock int) (*ProductDTO, error) {
	if stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	if s.outbox == nil || s.lowStock <= 0 {
		if err := setStock(ctx, s.repo, id, stock); err != nil {
			return nil, err
		}
		return s.AdminGet(ctx, id)
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := setStock(ctx, repo, id, stock); err != nil {
			return err
		}
		if stock > s.lowStock {
			return nil
		}
		product, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
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
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stock")
	}
	return s.AdminGet(ctx, id)
}

func setStock(ctx context.Context, repo *Repository, id uint, stock int) error {
	affected, err := repo.UpdateStock(ctx, id, stock)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stock")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func (s *service) AddImage(ctx context.Context, productID uint, input AddImageRequest) (*ProductDTO, error) {
	if _, err := s.load(ctx, productID, true); err != nil {
		return nil, err
	}
	position := 0
	if input.Position != nil {
		position = *input.Position
	} else {
		next, err := s.repo.NextImagePosition(ctx, productID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "image position")
		}
		position = next
	}
	image := &models.ProductImage{
		ProductID: productID,
		URL:       strings.TrimSpace(input.URL),
		AltText:   input.AltText,
		Position:  position,
	}
	if err := s.repo.AddImage(ctx, image); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add image")
	}
	return s.AdminGet(ctx, productID)
}

func (s *service) RemoveImage(ctx context.Context, productID, imageID uint) error {
	affected, err := s.repo.DeleteImage(ctx, productID, imageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove image")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
	}
	return nil
}

// load fetches a product. Storefront reads only see active products; admin
// reads see everything except deleted rows.
func (s *service) load(ctx context.Context, id uint, adminView bool) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if product.Status == enums.ProductStatusDeleted || (!adminView && !product.Status.Visible()) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) ensureCategory(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	ok, err := s.repo.CategoryExists(ctx, *id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup category")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "category does not exist")
	}
	return nil
}

func validatePrices(price decimal.Decimal, compareAt *decimal.Decimal) error {
	if !price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	}
	if compareAt != nil && compareAt.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "compare_at_price must not be negative")
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
}

func mapWriteError(err error, action string) error {
	switch {
	case db.IsUniqueViolation(err, slugConstraint):
		return pkgerrors.New(pkgerrors.CodeConflict, "a product with this slug already exists")
	case db.IsForeignKeyViolation(err):
		return pkgerrors.New(pkgerrors.CodeBadRequest, "category does not exist")
	case db.IsCheckViolation(err, ""):
		return pkgerrors.New(pkgerrors.CodeBadRequest, "stock must not be negative")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}

func roundPtr(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	rounded := value.Round(2)
	return &rounded
}

func utcPtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}
