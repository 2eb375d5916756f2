package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/checkout"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// Keys that are served on the unauthenticated settings endpoint.
const (
	KeyStoreName             = "store_name"
	KeyCurrency              = "currency"
	KeyContactEmail          = "contact_email"
	KeyFreeShippingThreshold = "free_shipping_threshold"
)

var publicKeys = map[string]bool{
	KeyStoreName:             true,
	KeyCurrency:              true,
	KeyContactEmail:          true,
	KeyFreeShippingThreshold: true,
}

// Service reads and writes store-wide settings.
type Service interface {
	GetPublic(ctx context.Context) (map[string]json.RawMessage, error)
	GetAll(ctx context.Context) ([]SettingDTO, error)
	Update(ctx context.Context, values map[string]json.RawMessage) ([]SettingDTO, error)
}

type ServiceParams struct {
	Repo     *Repository
	DB       db.TxRunner
	Pricing  checkout.Pricing
	Defaults map[string]string
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	tx       db.TxRunner
	defaults map[string]json.RawMessage
	logg     *logger.Logger
}

// NewService builds the settings service. Public keys without a stored row
// fall back to the defaults, which include the configured shipping threshold.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	defaults := map[string]json.RawMessage{
		KeyStoreName:             mustString("Storefront"),
		KeyCurrency:              mustString("USD"),
		KeyContactEmail:          mustString(""),
		KeyFreeShippingThreshold: mustString(params.Pricing.FreeShippingThreshold.StringFixed(2)),
	}
	for key, value := range params.Defaults {
		defaults[key] = mustString(value)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: params.Repo, tx: params.DB, defaults: defaults, logg: logg}, nil
}

func (s *service) GetPublic(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settings")
	}
	out := make(map[string]json.RawMessage, len(s.defaults)+len(rows))
	for key, value := range s.defaults {
		out[key] = value
	}
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (s *service) GetAll(ctx context.Context) ([]SettingDTO, error) {
	rows, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settings")
	}
	out := make([]SettingDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

// Update upserts every key in one transaction. Values must be valid JSON.
func (s *service) Update(ctx context.Context, values map[string]json.RawMessage) ([]SettingDTO, error) {
	if len(values) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one setting is required")
	}
	rows := make([]models.StoreSetting, 0, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "setting key is required")
		}
		if !json.Valid(value) {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "setting %s is not valid JSON", key)
		}
		rows = append(rows, models.StoreSetting{Key: key, Value: value, IsPublic: publicKeys[key]})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i := range rows {
			if err := repo.Upsert(ctx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save settings")
	}
	s.logg.Info(s.logg.WithField(ctx, "keys", len(rows)), "settings updated")
	return s.GetAll(ctx)
}

func mustString(value string) json.RawMessage {
	raw, _ := json.Marshal(value)
	return raw
}
