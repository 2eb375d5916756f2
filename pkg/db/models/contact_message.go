package models

import (
	"time"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

type ContactMessage struct {
	ID        uint                `gorm:"column:id;primaryKey"`
	Name      string              `gorm:"column:name;not null"`
	Email     string              `gorm:"column:email;not null"`
	Subject   *string             `gorm:"column:subject"`
	Message   string              `gorm:"column:message;not null"`
	Status    enums.ContactStatus `gorm:"column:status;type:text;not null;index"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
