package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	product "github.com/angelmondragon/storefront-api/internal/products"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
	"github.com/angelmondragon/storefront-api/pkg/types"
)

const slugConstraint = "ux_categories_slug"

type productLister interface {
	List(ctx context.Context, filters product.ListFilters, params pagination.Params) (pagination.Page[product.ProductDTO], error)
}

// Service exposes category browsing and admin management.
type Service interface {
	List(ctx context.Context) ([]CategoryDTO, error)
	GetBySlug(ctx context.Context, slug string) (*CategoryDTO, error)
	Products(ctx context.Context, slug string, sort string, params pagination.Params) (pagination.Page[product.ProductDTO], error)
	AdminList(ctx context.Context) ([]CategoryDTO, error)
	Create(ctx context.Context, input CreateCategoryRequest) (*CategoryDTO, error)
	Update(ctx context.Context, id uint, input UpdateCategoryRequest) (*CategoryDTO, error)
	Delete(ctx context.Context, id uint) error
}

type service struct {
	repo     *Repository
	products productLister
}

func NewService(repo *Repository, products productLister) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lister required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) List(ctx context.Context) ([]CategoryDTO, error) {
	return s.list(ctx, true)
}

func (s *service) AdminList(ctx context.Context) ([]CategoryDTO, error) {
	return s.list(ctx, false)
}

func (s *service) list(ctx context.Context, activeOnly bool) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

// GetBySlug returns an active category with its active product count.
func (s *service) GetBySlug(ctx context.Context, slug string) (*CategoryDTO, error) {
	category, err := s.activeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountActiveProducts(ctx, category.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count products")
	}
	dto := FromModel(category)
	dto.ProductCount = &count
	return &dto, nil
}

func (s *service) Products(ctx context.Context, slug string, sort string, params pagination.Params) (pagination.Page[product.ProductDTO], error) {
	category, err := s.activeBySlug(ctx, slug)
	if err != nil {
		return pagination.Page[product.ProductDTO]{}, err
	}
	filters := product.ListFilters{CategoryID: &category.ID}
	if sort != "" {
		parsed, err := parseSort(sort)
		if err != nil {
			return pagination.Page[product.ProductDTO]{}, err
		}
		filters.Sort = parsed
	}
	return s.products.List(ctx, filters, params)
}

func (s *service) Create(ctx context.Context, input CreateCategoryRequest) (*CategoryDTO, error) {
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = types.Slugify(input.Name)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug could not be derived from name")
	}
	if err := s.ensureParent(ctx, 0, input.ParentID); err != nil {
		return nil, err
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	category := &models.Category{
		Name:        strings.TrimSpace(input.Name),
		Slug:        slug,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		ParentID:    input.ParentID,
		IsActive:    active,
		SortOrder:   input.SortOrder,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, mapWriteError(err, "create category")
	}
	dto := FromModel(category)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uint, input UpdateCategoryRequest) (*CategoryDTO, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if input.ParentID != nil {
		if err := s.ensureParent(ctx, id, input.ParentID); err != nil {
			return nil, err
		}
		category.ParentID = input.ParentID
	}
	if input.Name != nil {
		category.Name = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		category.Slug = strings.TrimSpace(*input.Slug)
	}
	if input.Description != nil {
		category.Description = input.Description
	}
	if input.ImageURL != nil {
		category.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		category.SortOrder = *input.SortOrder
	}
	if err := s.repo.Save(ctx, category); err != nil {
		return nil, mapWriteError(err, "update category")
	}
	dto := FromModel(category)
	return &dto, nil
}

// Delete removes a category nothing references.
func (s *service) Delete(ctx context.Context, id uint) error {
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count category references")
	}
	if refs > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "category is still referenced by products or subcategories")
	}
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "category is still referenced by products or subcategories")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete category")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}

func (s *service) activeBySlug(ctx context.Context, slug string) (*models.Category, error) {
	category, err := s.repo.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, mapLookupError(err)
	}
	if !category.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return category, nil
}

func (s *service) ensureParent(ctx context.Context, selfID uint, parentID *uint) error {
	if parentID == nil {
		return nil
	}
	if *parentID == selfID {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "a category cannot be its own parent")
	}
	if _, err := s.repo.FindByID(ctx, *parentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeBadRequest, "parent category does not exist")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup parent category")
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup category")
}

func mapWriteError(err error, action string) error {
	if db.IsUniqueViolation(err, slugConstraint) {
		return pkgerrors.New(pkgerrors.CodeConflict, "a category with this slug already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}

func parseSort(raw string) (enums.ProductSort, error) {
	sort, err := enums.ParseProductSort(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort")
	}
	return sort, nil
}
