package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/api/validators"
	"github.com/angelmondragon/storefront-api/internal/users"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/security"
)

type adminInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,password"`
}

type outcome string

const (
	outcomeCreated  outcome = "created"
	outcomePromoted outcome = "promoted"
)

// ensureSuperAdmin creates the account, or promotes and reactivates an
// existing one and resets its password.
func ensureSuperAdmin(ctx context.Context, repo *users.Repository, pw config.PasswordConfig, in adminInput) (*models.User, outcome, error) {
	in.Email = validators.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validators.Struct(in); err != nil {
		return nil, "", err
	}

	hash, err := security.HashPassword(in.Password, pw)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	existing, err := repo.FindByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user := &models.User{
			Email:        in.Email,
			PasswordHash: hash,
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Role:         enums.RoleSuperAdmin,
			Status:       enums.UserStatusActive,
		}
		if err := repo.Create(ctx, user); err != nil {
			return nil, "", fmt.Errorf("create user: %w", err)
		}
		return user, outcomeCreated, nil
	case err != nil:
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if err := repo.UpdateFields(ctx, existing.ID, map[string]any{
		"password_hash": hash,
		"role":          enums.RoleSuperAdmin,
		"status":        enums.UserStatusActive,
	}); err != nil {
		return nil, "", fmt.Errorf("promote user: %w", err)
	}
	promoted, err := repo.FindByID(ctx, existing.ID)
	if err != nil {
		return nil, "", fmt.Errorf("reload user: %w", err)
	}
	return promoted, outcomePromoted, nil
}
