package models

import "time"

type Category struct {
	ID          uint      `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex:ux_categories_slug"`
	Description *string   `gorm:"column:description"`
	ImageURL    *string   `gorm:"column:image_url"`
	ParentID    *uint     `gorm:"column:parent_id;index"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	SortOrder   int       `gorm:"column:sort_order;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
