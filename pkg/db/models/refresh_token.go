package models

import "time"

// RefreshToken is the server-side record of an issued refresh token. Only the
// SHA-256 digest of the token is stored. Rows are deleted, never updated.
type RefreshToken struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	UserID    uint      `gorm:"column:user_id;not null;index:idx_refresh_tokens_user_id"`
	TokenHash string    `gorm:"column:token_hash;type:char(64);not null;uniqueIndex:ux_refresh_tokens_token_hash"`
	JTI       string    `gorm:"column:jti;type:text;not null"`
	UserAgent *string   `gorm:"column:user_agent"`
	IPAddress *string   `gorm:"column:ip_address"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index:idx_refresh_tokens_expires_at"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
