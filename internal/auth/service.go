package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-api/pkg/auth"
	"github.com/angelmondragon/storefront-api/pkg/auth/session"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-api/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid email or password"
	invalidRefreshMessage     = "invalid or expired refresh token"
	// ForgotPasswordMessage is returned whether or not the email exists.
	ForgotPasswordMessage = "if the email exists, a reset link has been sent"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest, client ClientInfo) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest, client ClientInfo) (*AuthResult, error)
	AdminLogin(ctx context.Context, req LoginRequest, client ClientInfo) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID uint) error
	ChangePassword(ctx context.Context, userID uint, req ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type userRepository interface {
	Create(ctx context.Context, user *models.User) error
	EmailTaken(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

type sessionManager interface {
	Issue(ctx context.Context, userID uint, meta session.ClientMeta) (*session.Issued, error)
	Inspect(ctx context.Context, provided string) (uint, error)
	Rotate(ctx context.Context, provided string, meta session.ClientMeta) (*session.Issued, error)
	Revoke(ctx context.Context, provided string) error
	RevokeAll(ctx context.Context, userID uint) (int64, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          *users.Repository
	SessionManager sessionManager
	DB             db.TxRunner
	Outbox         outbox.Emitter
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	users   userRepository
	txUsers func(tx *gorm.DB) userRepository
	session sessionManager
	tx      db.TxRunner
	outbox  outbox.Emitter
	jwtCfg  config.JWTConfig
	passCfg config.PasswordConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService constructs the credential service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	if params.JWTConfig.AccessTokenTTL() <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	repo := params.Users
	return &service{
		users:   repo,
		txUsers: func(tx *gorm.DB) userRepository { return repo.WithTx(tx) },
		session: params.SessionManager,
		tx:      params.DB,
		outbox:  params.Outbox,
		jwtCfg:  params.JWTConfig,
		passCfg: params.PasswordConfig,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Register creates an active customer and logs them in. The user row and the
// user_registered event commit together.
func (s *service) Register(ctx context.Context, req RegisterRequest, client ClientInfo) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}

	hash, err := security.HashPassword(req.Password, s.passCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        trimmedOrNil(req.Phone),
		Role:         enums.RoleCustomer,
		Status:       enums.UserStatusActive,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.txUsers(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID, Role: string(user.Role)},
			Data:          payloads.UserRegisteredEvent{UserID: user.ID, Email: user.Email},
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_users_email_active") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID), "user registered")
	return s.issue(ctx, user, client)
}

func (s *service) Login(ctx context.Context, req LoginRequest, client ClientInfo) (*AuthResult, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if err := s.recordLogin(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(ctx, user, client)
}

// AdminLogin additionally requires admin.access. A customer with valid
// credentials gets the same response as a wrong password.
func (s *service) AdminLogin(ctx context.Context, req LoginRequest, client ClientInfo) (*AuthResult, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if !enums.HasPermission(user.Role, enums.PermAdminAccess) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	if err := s.recordLogin(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(ctx, user, client)
}

// Refresh rotates the refresh token and mints a new access token.
func (s *service) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResult, error) {
	userID, err := s.session.Inspect(ctx, refreshToken)
	if err != nil {
		return nil, refreshError(err)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
	}

	issued, err := s.session.Rotate(ctx, refreshToken, clientMeta(client))
	if err != nil {
		return nil, refreshError(err)
	}
	return s.result(user, issued)
}

func (s *service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.session.Revoke(ctx, refreshToken); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke refresh token")
	}
	return nil
}

func (s *service) LogoutAll(ctx context.Context, userID uint) error {
	revoked, err := s.session.RevokeAll(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke refresh tokens")
	}
	s.logg.Info(s.logg.WithField(s.logg.WithUserID(ctx, userID), "revoked", revoked), "sessions revoked")
	return nil
}

// ChangePassword verifies the current password, stores the new hash, and
// signs the user out everywhere.
func (s *service) ChangePassword(ctx context.Context, userID uint, req ChangePasswordRequest) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	ok, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeBadRequest, "current password is incorrect")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	if _, err := s.session.RevokeAll(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke refresh tokens")
	}
	return nil
}

// ForgotPassword never reveals whether the account exists. Delivery of the
// reset link is not wired yet.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	s.logg.Info(s.logg.WithField(ctx, "email_domain", emailDomain(email)), "password reset requested")
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return pkgerrors.New(pkgerrors.CodeNotImplemented, "password reset is not available")
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !user.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	s.upgradeHash(ctx, user, password)
	return user, nil
}

// upgradeHash re-hashes the password when the configured argon cost changed
// since it was stored. Failures only cost the upgrade, never the login.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	if !security.NeedsRehash(user.PasswordHash, s.passCfg) {
		return
	}
	hash, err := security.HashPassword(password, s.passCfg)
	if err == nil {
		err = s.users.UpdatePassword(ctx, user.ID, hash)
	}
	if err != nil {
		s.logg.Warn(s.logg.WithField(s.logg.WithUserID(ctx, user.ID), "error", err.Error()), "password rehash skipped")
		return
	}
	user.PasswordHash = hash
}

func (s *service) recordLogin(ctx context.Context, user *models.User) error {
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return nil
}

func (s *service) issue(ctx context.Context, user *models.User, client ClientInfo) (*AuthResult, error) {
	issued, err := s.session.Issue(ctx, user.ID, clientMeta(client))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	return s.result(user, issued)
}

func (s *service) result(user *models.User, issued *session.Issued) (*AuthResult, error) {
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: issued.Token,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.jwtCfg.AccessTokenTTL().Seconds()),
		User:         users.FromModel(user),
	}, nil
}

func refreshError(err error) error {
	if errors.Is(err, session.ErrInvalidRefreshToken) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidRefreshMessage)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh session")
}

func clientMeta(client ClientInfo) session.ClientMeta {
	return session.ClientMeta{UserAgent: client.UserAgent, IPAddress: client.IPAddress}
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func emailDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 {
		return strings.ToLower(email[at+1:])
	}
	return ""
}
