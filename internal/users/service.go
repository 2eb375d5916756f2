package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
)

// TokenRevoker deletes every refresh token for a user.
type TokenRevoker interface {
	RevokeAll(ctx context.Context, userID uint) (int64, error)
}

// Service exposes profile and admin user management.
type Service interface {
	GetMe(ctx context.Context, userID uint) (*UserDTO, error)
	UpdateMe(ctx context.Context, userID uint, input UpdateMeRequest) (*UserDTO, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[UserDTO], error)
	Get(ctx context.Context, id uint) (*UserDTO, error)
	UpdateRole(ctx context.Context, actorID uint, actorRole enums.Role, id uint, role enums.Role) (*UserDTO, error)
	UpdateStatus(ctx context.Context, actorID uint, actorRole enums.Role, id uint, status enums.UserStatus) (*UserDTO, error)
	Delete(ctx context.Context, actorID uint, actorRole enums.Role, id uint) error
}

type ServiceParams struct {
	Repo    *Repository
	Revoker TokenRevoker
	Logger  *logger.Logger
}

type service struct {
	repo    *Repository
	revoker TokenRevoker
	logg    *logger.Logger
}

// NewService builds the user service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Revoker == nil {
		return nil, fmt.Errorf("token revoker required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: params.Repo, revoker: params.Revoker, logg: logg}, nil
}

func (s *service) GetMe(ctx context.Context, userID uint) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == enums.UserStatusDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return FromModel(user), nil
}

func (s *service) UpdateMe(ctx context.Context, userID uint, input UpdateMeRequest) (*UserDTO, error) {
	fields := map[string]any{}
	if input.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			fields["phone"] = nil
		} else {
			fields["phone"] = phone
		}
	}
	if err := s.repo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, mapRepoError(err, "update profile")
	}
	return s.GetMe(ctx, userID)
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[UserDTO], error) {
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return pagination.Page[UserDTO]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	items := make([]UserDTO, 0, len(rows))
	for i := range rows {
		items = append(items, *FromModel(&rows[i]))
	}
	return pagination.Page[UserDTO]{Items: items, Meta: pagination.NewMeta(params, total)}, nil
}

func (s *service) Get(ctx context.Context, id uint) (*UserDTO, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// UpdateRole changes a user's role. Granting admin or super_admin, or touching
// a user who already holds one, requires roles.grant_admin.
func (s *service) UpdateRole(ctx context.Context, actorID uint, actorRole enums.Role, id uint, role enums.Role) (*UserDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if actorID == id {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "cannot change your own role")
	}
	target, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireAdminGrant(actorRole, role, target.Role); err != nil {
		return nil, err
	}
	if target.Status == enums.UserStatusDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return nil, mapRepoError(err, "update role")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"target_user_id": id, "from_role": target.Role, "to_role": role})
	s.logg.Info(ctx, "user role updated")
	return s.Get(ctx, id)
}

// UpdateStatus suspends or reactivates a user. Suspension revokes every
// refresh token of the user.
func (s *service) UpdateStatus(ctx context.Context, actorID uint, actorRole enums.Role, id uint, status enums.UserStatus) (*UserDTO, error) {
	if status != enums.UserStatusActive && status != enums.UserStatusSuspended {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be active or suspended")
	}
	if actorID == id {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "cannot change your own status")
	}
	target, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.Status == enums.UserStatusDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err := requireAdminGrant(actorRole, target.Role, target.Role); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, mapRepoError(err, "update status")
	}
	if status == enums.UserStatusSuspended {
		if _, err := s.revoker.RevokeAll(ctx, id); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke sessions")
		}
	}
	return s.Get(ctx, id)
}

// Delete soft deletes a user and revokes their sessions.
func (s *service) Delete(ctx context.Context, actorID uint, actorRole enums.Role, id uint) error {
	if actorID == id {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "cannot delete your own account")
	}
	target, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if target.Status == enums.UserStatusDeleted {
		return nil
	}
	if err := requireAdminGrant(actorRole, target.Role, target.Role); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, enums.UserStatusDeleted); err != nil {
		return mapRepoError(err, "delete user")
	}
	if _, err := s.revoker.RevokeAll(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke sessions")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "load user")
	}
	return user, nil
}

func requireAdminGrant(actorRole enums.Role, roles ...enums.Role) error {
	for _, role := range roles {
		if role.AtLeast(enums.RoleAdmin) && !enums.HasPermission(actorRole, enums.PermRolesGrantAdmin) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only a super admin may manage admin accounts")
		}
	}
	return nil
}

func mapRepoError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, action)
}
