package models

import (
	"time"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

// User is a customer or staff account. Rows are soft deleted via Status.
type User struct {
	ID           uint             `gorm:"column:id;primaryKey"`
	Email        string           `gorm:"column:email;type:text;not null;uniqueIndex:ux_users_email_active,where:status <> 'deleted'"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	FirstName    string           `gorm:"column:first_name;not null"`
	LastName     string           `gorm:"column:last_name;not null"`
	Phone        *string          `gorm:"column:phone"`
	Role         enums.Role       `gorm:"column:role;type:text;not null;index"`
	Status       enums.UserStatus `gorm:"column:status;type:text;not null;index"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsActive reports whether the account may authenticate.
func (u User) IsActive() bool {
	return u.Status == enums.UserStatusActive
}
