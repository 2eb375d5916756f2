package models

import (
	"encoding/json"
	"time"
)

// StoreSetting is a key/value row. Public keys are exposed without auth.
type StoreSetting struct {
	Key       string          `gorm:"column:key;primaryKey"`
	Value     json.RawMessage `gorm:"column:value;type:jsonb;not null"`
	IsPublic  bool            `gorm:"column:is_public;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
