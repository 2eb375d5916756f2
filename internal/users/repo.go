package users

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new user. Emails are stored lower-cased.
func (r *Repository) Create(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByEmail retrieves the non-deleted user matching email, ignoring case.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("lower(email) = ? AND status <> ?", normalizeEmail(email), enums.UserStatusDeleted).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailTaken reports whether a non-deleted user holds email.
func (r *Repository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("lower(email) = ? AND status <> ?", normalizeEmail(email), enums.UserStatusDeleted).
		Count(&count).Error
	return count > 0, err
}

// FindByID loads a user by id, including soft deleted rows.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// UpdateFields applies a partial update and bumps updated_at.
func (r *Repository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdatePassword stores a new password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.UpdateFields(ctx, id, map[string]any{"password_hash": hash})
}

// UpdateRole sets the user's role.
func (r *Repository) UpdateRole(ctx context.Context, id uint, role enums.Role) error {
	return r.UpdateFields(ctx, id, map[string]any{"role": role})
}

// UpdateStatus sets the user's status. Soft delete is UpdateStatus(deleted).
func (r *Repository) UpdateStatus(ctx context.Context, id uint, status enums.UserStatus) error {
	return r.UpdateFields(ctx, id, map[string]any{"status": status})
}

// ListFilters narrows the admin user listing.
type ListFilters struct {
	Role   *enums.Role
	Status *enums.UserStatus
	Search string
}

// List returns a page of users ordered newest first. Deleted users are only
// returned when explicitly filtered for.
func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	} else {
		query = query.Where("status <> ?", enums.UserStatusDeleted)
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("lower(email) LIKE ? OR lower(first_name) LIKE ? OR lower(last_name) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.User
	if err := query.Order("created_at DESC, id DESC").Scopes(pagination.Scope(params)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
