package paymentmethods

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

var last4Pattern = regexp.MustCompile(`^[0-9]{4}$`)

// Service orchestrates stored payment references. Only a reference is kept;
// card numbers never reach this service.
type Service interface {
	List(ctx context.Context, userID uint) ([]PaymentMethodDTO, error)
	Get(ctx context.Context, userID, id uint) (*PaymentMethodDTO, error)
	Create(ctx context.Context, userID uint, input CreatePaymentMethodRequest) (*PaymentMethodDTO, error)
	Update(ctx context.Context, userID, id uint, input UpdatePaymentMethodRequest) (*PaymentMethodDTO, error)
	Delete(ctx context.Context, userID, id uint) error
	SetDefault(ctx context.Context, userID, id uint) (*PaymentMethodDTO, error)
}

// ServiceParams groups dependencies for the payment method service.
type ServiceParams struct {
	Repo              *Repository
	TransactionRunner db.TxRunner
}

type service struct {
	repo     *Repository
	txRunner db.TxRunner
}

// NewService constructs a payment method service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment method repo required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: params.Repo, txRunner: params.TransactionRunner}, nil
}

func (s *service) List(ctx context.Context, userID uint) ([]PaymentMethodDTO, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment methods")
	}
	out := make([]PaymentMethodDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID, id uint) (*PaymentMethodDTO, error) {
	row, err := s.repo.FindForUser(ctx, userID, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, userID uint, input CreatePaymentMethodRequest) (*PaymentMethodDTO, error) {
	kind, err := enums.ParsePaymentMethodType(strings.TrimSpace(input.Type))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method type")
	}
	if err := validateLast4(input.Last4); err != nil {
		return nil, err
	}
	if kind.NeedsCardDetails() && input.Last4 == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "last4 is required for cards")
	}

	row := &models.PaymentMethod{
		UserID:     userID,
		Type:       kind,
		Provider:   input.Provider,
		Brand:      input.Brand,
		Last4:      input.Last4,
		ExpMonth:   input.ExpMonth,
		ExpYear:    input.ExpYear,
		HolderName: input.HolderName,
		IsDefault:  input.IsDefault,
	}
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountForUser(ctx, userID)
		if err != nil {
			return err
		}
		if count == 0 {
			row.IsDefault = true
		}
		if row.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
		}
		return repo.Create(ctx, row)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment method")
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, id uint, input UpdatePaymentMethodRequest) (*PaymentMethodDTO, error) {
	if err := validateLast4(input.Last4); err != nil {
		return nil, err
	}
	var row *models.PaymentMethod
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if row, err = repo.FindForUser(ctx, userID, id); err != nil {
			return err
		}
		if input.Provider != nil {
			row.Provider = input.Provider
		}
		if input.Brand != nil {
			row.Brand = input.Brand
		}
		if input.Last4 != nil {
			row.Last4 = input.Last4
		}
		if input.ExpMonth != nil {
			row.ExpMonth = input.ExpMonth
		}
		if input.ExpYear != nil {
			row.ExpYear = input.ExpYear
		}
		if input.HolderName != nil {
			row.HolderName = input.HolderName
		}
		if input.IsDefault != nil && *input.IsDefault && !row.IsDefault {
			if err := repo.ClearDefault(ctx, userID); err != nil {
				return err
			}
			row.IsDefault = true
		}
		return repo.Save(ctx, row)
	})
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, id uint) error {
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUser(ctx, userID, id)
		if err != nil {
			return err
		}
		if _, err := repo.Delete(ctx, userID, id); err != nil {
			return err
		}
		if !row.IsDefault {
			return nil
		}
		next, err := repo.Newest(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return repo.MarkDefault(ctx, userID, next.ID)
	})
	return mapLookupError(err)
}

func (s *service) SetDefault(ctx context.Context, userID, id uint) (*PaymentMethodDTO, error) {
	var row *models.PaymentMethod
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if row, err = repo.FindForUser(ctx, userID, id); err != nil {
			return err
		}
		if err := repo.ClearDefault(ctx, userID); err != nil {
			return err
		}
		if err := repo.MarkDefault(ctx, userID, id); err != nil {
			return err
		}
		row.IsDefault = true
		return nil
	})
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(row)
	return &dto, nil
}

func validateLast4(last4 *string) error {
	if last4 != nil && !last4Pattern.MatchString(*last4) {
		return pkgerrors.New(pkgerrors.CodeValidation, "last4 must be exactly four digits")
	}
	return nil
}

func mapLookupError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment method operation failed")
}
