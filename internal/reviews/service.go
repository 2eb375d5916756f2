package reviews

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
)

const oneReviewConstraint = "ux_reviews_product_user"

type productLoader interface {
	FindByID(ctx context.Context, id uint) (*models.Product, error)
}

// Service manages product reviews. New reviews are published immediately and
// moderators may reject them afterwards. Every write recomputes the product's
// rating aggregate in the same transaction.
type Service interface {
	ListForProduct(ctx context.Context, productID uint, params pagination.Params) (pagination.Page[ReviewDTO], error)
	Create(ctx context.Context, userID, productID uint, input CreateReviewRequest) (*ReviewDTO, error)
	Update(ctx context.Context, userID, reviewID uint, input UpdateReviewRequest) (*ReviewDTO, error)
	Delete(ctx context.Context, userID, reviewID uint) error
	AdminList(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[ReviewDTO], error)
	Moderate(ctx context.Context, reviewID uint, status enums.ReviewStatus) (*ReviewDTO, error)
	AdminDelete(ctx context.Context, reviewID uint) error
}

type ServiceParams struct {
	Repo     *Repository
	Products productLoader
	DB       db.TxRunner
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	products productLoader
	tx       db.TxRunner
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{repo: params.Repo, products: params.Products, tx: params.DB, logg: params.Logger}, nil
}

func (s *service) ListForProduct(ctx context.Context, productID uint, params pagination.Params) (pagination.Page[ReviewDTO], error) {
	if _, err := s.activeProduct(ctx, productID); err != nil {
		return pagination.Page[ReviewDTO]{}, err
	}
	approved := enums.ReviewStatusApproved
	return s.list(ctx, ListFilters{ProductID: &productID, Status: &approved}, params)
}

func (s *service) AdminList(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[ReviewDTO], error) {
	return s.list(ctx, filters, params)
}

func (s *service) list(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[ReviewDTO], error) {
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return pagination.Page[ReviewDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	userIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		userIDs = append(userIDs, row.UserID)
	}
	names, err := s.repo.AuthorNames(ctx, userIDs)
	if err != nil {
		return pagination.Page[ReviewDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review authors")
	}

	items := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		dto := FromModel(&rows[i])
		dto.AuthorName = names[rows[i].UserID]
		items = append(items, dto)
	}
	return pagination.Page[ReviewDTO]{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

// Create allows one review per user and product.
func (s *service) Create(ctx context.Context, userID, productID uint, input CreateReviewRequest) (*ReviewDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if _, err := s.activeProduct(ctx, productID); err != nil {
		return nil, err
	}
	row := &models.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    input.Rating,
		Title:     input.Title,
		Body:      input.Body,
		Status:    enums.ReviewStatusApproved,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, row); err != nil {
			return err
		}
		return repo.RecomputeRating(ctx, productID)
	})
	if err != nil {
		if db.IsUniqueViolation(err, oneReviewConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, reviewID uint, input UpdateReviewRequest) (*ReviewDTO, error) {
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	var row *models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if row, err = ownReview(ctx, repo, userID, reviewID); err != nil {
			return err
		}
		if input.Rating != nil {
			row.Rating = *input.Rating
		}
		if input.Title != nil {
			row.Title = input.Title
		}
		if input.Body != nil {
			row.Body = input.Body
		}
		if err := repo.Save(ctx, row); err != nil {
			return err
		}
		return repo.RecomputeRating(ctx, row.ProductID)
	})
	if err != nil {
		return nil, mapError(err, "update review")
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, reviewID uint) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := ownReview(ctx, repo, userID, reviewID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, row.ID); err != nil {
			return err
		}
		return repo.RecomputeRating(ctx, row.ProductID)
	})
	return mapError(err, "delete review")
}

func (s *service) Moderate(ctx context.Context, reviewID uint, status enums.ReviewStatus) (*ReviewDTO, error) {
	if _, err := enums.ParseReviewStatus(string(status)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid review status")
	}
	var row *models.Review
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if row, err = repo.FindByID(ctx, reviewID); err != nil {
			return err
		}
		if row.Status == status {
			return nil
		}
		row.Status = status
		if err := repo.Save(ctx, row); err != nil {
			return err
		}
		return repo.RecomputeRating(ctx, row.ProductID)
	})
	if err != nil {
		return nil, mapError(err, "moderate review")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"review_id": reviewID, "status": status}), "review moderated")
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) AdminDelete(ctx context.Context, reviewID uint) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, row.ID); err != nil {
			return err
		}
		return repo.RecomputeRating(ctx, row.ProductID)
	})
	return mapError(err, "delete review")
}

func (s *service) activeProduct(ctx context.Context, productID uint) (*models.Product, error) {
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

// ownReview hides other users' reviews behind NotFound.
func ownReview(ctx context.Context, repo *Repository, userID, reviewID uint) (*models.Review, error) {
	row, err := repo.FindByID(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if row.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func mapError(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
