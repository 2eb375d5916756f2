package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
)

// Service handles the public contact form and its admin inbox.
type Service interface {
	Submit(ctx context.Context, input SubmitRequest) (*MessageDTO, error)
	List(ctx context.Context, status *enums.ContactStatus, params pagination.Params) (pagination.Page[MessageDTO], error)
	Get(ctx context.Context, id uint) (*MessageDTO, error)
	UpdateStatus(ctx context.Context, id uint, status enums.ContactStatus) (*MessageDTO, error)
	Delete(ctx context.Context, id uint) error
}

type service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contact repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitRequest) (*MessageDTO, error) {
	name := strings.TrimSpace(input.Name)
	body := strings.TrimSpace(input.Message)
	if name == "" || body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and message are required")
	}
	msg := &models.ContactMessage{
		Name:    name,
		Email:   strings.ToLower(strings.TrimSpace(input.Email)),
		Subject: trimmed(input.Subject),
		Message: body,
		Status:  enums.ContactStatusNew,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save contact message")
	}
	s.logg.Info(s.logg.WithField(ctx, "contact_message_id", msg.ID), "contact message received")
	dto := FromModel(msg)
	return &dto, nil
}

func (s *service) List(ctx context.Context, status *enums.ContactStatus, params pagination.Params) (pagination.Page[MessageDTO], error) {
	rows, total, err := s.repo.List(ctx, status, params)
	if err != nil {
		return pagination.Page[MessageDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list contact messages")
	}
	items := make([]MessageDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	return pagination.Page[MessageDTO]{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Get(ctx context.Context, id uint) (*MessageDTO, error) {
	msg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load contact message")
	}
	dto := FromModel(msg)
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uint, status enums.ContactStatus) (*MessageDTO, error) {
	if _, err := enums.ParseContactStatus(string(status)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	affected, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update contact message")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete contact message")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "message not found")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
