package settings

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
)

type SettingDTO struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	IsPublic  bool            `json:"is_public"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func FromModel(m *models.StoreSetting) SettingDTO {
	return SettingDTO{Key: m.Key, Value: m.Value, IsPublic: m.IsPublic, UpdatedAt: m.UpdatedAt}
}

// UpdateRequest maps setting keys to arbitrary JSON values.
type UpdateRequest struct {
	Values map[string]json.RawMessage `json:"values" validate:"required,min=1,max=50,dive,keys,min=1,max=64,endkeys"`
}
