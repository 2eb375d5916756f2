package addresses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

// Service manages a user's address book. The first address becomes the
// default and at most one address per user is default.
type Service interface {
	List(ctx context.Context, userID uint) ([]AddressDTO, error)
	Get(ctx context.Context, userID, id uint) (*AddressDTO, error)
	Create(ctx context.Context, userID uint, input CreateAddressRequest) (*AddressDTO, error)
	Update(ctx context.Context, userID, id uint, input UpdateAddressRequest) (*AddressDTO, error)
	Delete(ctx context.Context, userID, id uint) error
	SetDefault(ctx context.Context, userID, id uint) (*AddressDTO, error)
}

type ServiceParams struct {
	Repo *Repository
	DB   db.TxRunner
}

type service struct {
	repo *Repository
	tx   db.TxRunner
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: params.Repo, tx: params.DB}, nil
}

func (s *service) List(ctx context.Context, userID uint) ([]AddressDTO, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID, id uint) (*AddressDTO, error) {
	row, err := s.repo.FindForUser(ctx, userID, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, userID uint, input CreateAddressRequest) (*AddressDTO, error) {
	row := &models.Address{
		UserID:     userID,
		Label:      input.Label,
		FullName:   strings.TrimSpace(input.FullName),
		Phone:      input.Phone,
		Line1:      strings.TrimSpace(input.Line1),
		Line2:      input.Line2,
		City:       strings.TrimSpace(input.City),
		State:      input.State,
		PostalCode: strings.TrimSpace(input.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(input.Country)),
		IsDefault:  input.IsDefault,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
	}
	dto := FromModel(row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, id uint, input UpdateAddressRequest) (*AddressDTO, error) {
	var row *models.Address
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		row, err = repo.FindForUser(ctx, userID, id)
		if err != nil {
			return err
		}
		applyUpdate(row, input)
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

// Delete removes the address. When it was the default, the newest remaining
// address takes over.
func (s *service) Delete(ctx context.Context, userID, id uint) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
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
		_, err = repo.MarkDefault(ctx, userID, next.ID)
		return err
	})
	return mapLookupError(err)
}

func (s *service) SetDefault(ctx context.Context, userID, id uint) (*AddressDTO, error) {
	var row *models.Address
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		if row, err = repo.FindForUser(ctx, userID, id); err != nil {
			return err
		}
		if err := repo.ClearDefault(ctx, userID); err != nil {
			return err
		}
		if _, err := repo.MarkDefault(ctx, userID, id); err != nil {
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

func applyUpdate(row *models.Address, input UpdateAddressRequest) {
	if input.Label != nil {
		row.Label = input.Label
	}
	if input.FullName != nil {
		row.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Phone != nil {
		row.Phone = input.Phone
	}
	if input.Line1 != nil {
		row.Line1 = strings.TrimSpace(*input.Line1)
	}
	if input.Line2 != nil {
		row.Line2 = input.Line2
	}
	if input.City != nil {
		row.City = strings.TrimSpace(*input.City)
	}
	if input.State != nil {
		row.State = input.State
	}
	if input.PostalCode != nil {
		row.PostalCode = strings.TrimSpace(*input.PostalCode)
	}
	if input.Country != nil {
		row.Country = strings.ToUpper(strings.TrimSpace(*input.Country))
	}
}

func mapLookupError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "address operation failed")
}
