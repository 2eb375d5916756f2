package models

import "time"

type Address struct {
	ID         uint      `gorm:"column:id;primaryKey"`
	UserID     uint      `gorm:"column:user_id;not null;index"`
	Label      *string   `gorm:"column:label"`
	FullName   string    `gorm:"column:full_name;not null"`
	Phone      *string   `gorm:"column:phone"`
	Line1      string    `gorm:"column:line1;not null"`
	Line2      *string   `gorm:"column:line2"`
	City       string    `gorm:"column:city;not null"`
	State      *string   `gorm:"column:state"`
	PostalCode string    `gorm:"column:postal_code;not null"`
	Country    string    `gorm:"column:country;not null"`
	IsDefault  bool      `gorm:"column:is_default;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
