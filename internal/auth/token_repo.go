package auth

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/auth/session"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
)

// TokenRepository persists refresh token digests in refresh_tokens. It
// satisfies session.Store.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Insert(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *TokenRepository) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var row models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteByHash reports how many rows were removed so rotation can detect a
// concurrent winner.
func (r *TokenRepository) DeleteByHash(ctx context.Context, tokenHash string) (int64, error) {
	res := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

// WithinTx hands fn a repository bound to a single transaction.
func (r *TokenRepository) WithinTx(ctx context.Context, fn func(session.Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TokenRepository{db: tx})
	})
}

func (r *TokenRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

// DeleteExpired removes tokens whose expiry is before cutoff.
func (r *TokenRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", cutoff).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
