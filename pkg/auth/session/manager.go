package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-api/pkg/auth"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"gorm.io/gorm"
)

// ErrInvalidRefreshToken covers every refresh failure: bad signature, expired,
// unknown, or already rotated.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// Store persists refresh token digests. WithinTx runs fn against a store
// bound to one transaction, committed only when fn returns nil.
type Store interface {
	Insert(ctx context.Context, token *models.RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	DeleteByHash(ctx context.Context, tokenHash string) (int64, error)
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// ClientMeta is recorded alongside a refresh token for auditing.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

// Issued is a freshly minted refresh token and its expiry.
type Issued struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// Manager handles refresh token creation, storage, and rotation.
type Manager struct {
	store Store
	cfg   config.JWTConfig
	now   func() time.Time
}

// NewManager constructs a session manager backed by the refresh_tokens table.
func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("refresh token store is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	if accessTTL := cfg.AccessTokenTTL(); ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}, nil
}

// Issue mints a refresh token for userID and persists its digest.
func (m *Manager) Issue(ctx context.Context, userID uint, meta ClientMeta) (*Issued, error) {
	return m.issue(ctx, m.store, userID, meta)
}

func (m *Manager) issue(ctx context.Context, store Store, userID uint, meta ClientMeta) (*Issued, error) {
	token, claims, err := auth.MintRefreshToken(m.cfg, m.now(), userID)
	if err != nil {
		return nil, err
	}

	record := &models.RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(token),
		JTI:       claims.ID,
		UserAgent: optional(meta.UserAgent),
		IPAddress: optional(meta.IPAddress),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if err := store.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &Issued{Token: token, JTI: claims.ID, ExpiresAt: record.ExpiresAt}, nil
}

// Inspect verifies the token and confirms it is still stored and unexpired.
// It returns the owning user id without consuming the token.
func (m *Manager) Inspect(ctx context.Context, provided string) (uint, error) {
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return 0, ErrInvalidRefreshToken
	}

	claims, err := auth.ParseRefreshToken(m.cfg, provided)
	if err != nil {
		return 0, ErrInvalidRefreshToken
	}

	record, err := m.store.FindByHash(ctx, HashToken(provided))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrInvalidRefreshToken
		}
		return 0, err
	}
	if record.UserID != claims.UserID || !record.ExpiresAt.After(m.now()) {
		return 0, ErrInvalidRefreshToken
	}
	return record.UserID, nil
}

// Rotate deletes the provided token and issues a replacement in one
// transaction, so a failed insert leaves the old token usable. Only one of
// two concurrent rotations of the same token can win the delete.
func (m *Manager) Rotate(ctx context.Context, provided string, meta ClientMeta) (*Issued, error) {
	userID, err := m.Inspect(ctx, provided)
	if err != nil {
		return nil, err
	}

	var issued *Issued
	err = m.store.WithinTx(ctx, func(store Store) error {
		deleted, err := store.DeleteByHash(ctx, HashToken(strings.TrimSpace(provided)))
		if err != nil {
			return err
		}
		if deleted != 1 {
			return ErrInvalidRefreshToken
		}
		issued, err = m.issue(ctx, store, userID, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// Revoke deletes exactly the provided token. Unknown tokens are not an error.
func (m *Manager) Revoke(ctx context.Context, provided string) error {
	provided = strings.TrimSpace(provided)
	if provided == "" {
		return nil
	}
	_, err := m.store.DeleteByHash(ctx, HashToken(provided))
	return err
}

// RevokeAll deletes every stored token for the user.
func (m *Manager) RevokeAll(ctx context.Context, userID uint) (int64, error) {
	if userID == 0 {
		return 0, fmt.Errorf("user id is required")
	}
	return m.store.DeleteByUser(ctx, userID)
}

// HashToken returns the hex SHA-256 digest stored in place of the token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
