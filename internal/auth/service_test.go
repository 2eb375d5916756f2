package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-api/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-api/pkg/auth"
	"github.com/angelmondragon/storefront-api/pkg/auth/session"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/security"
)

var (
	testJWT = config.JWTConfig{
		Secret:                 "access-secret",
		RefreshSecret:          "refresh-secret",
		Issuer:                 "storefront",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
	testPassword = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1}
)

type fixture struct {
	conn   *gorm.DB
	svc    Service
	tokens *TokenRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	tokens := NewTokenRepository(conn)
	mgr, err := session.NewManager(tokens, testJWT)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Users:          users.NewRepository(conn),
		SessionManager: mgr,
		DB:             db.NewFromGorm(conn),
		Outbox:         outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		JWTConfig:      testJWT,
		PasswordConfig: testPassword,
	})
	require.NoError(t, err)
	return fixture{conn: conn, svc: svc, tokens: tokens}
}

func (f fixture) seedUser(t *testing.T, email, password string, role enums.Role, status enums.UserStatus) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPassword)
	require.NoError(t, err)
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		Status:       status,
	}
	require.NoError(t, f.conn.Create(user).Error)
	return user
}

func registerRequest(email string) RegisterRequest {
	return RegisterRequest{Email: email, Password: "s3cretpass", FirstName: "Ada", LastName: "Lovelace"}
}

func TestRegisterThenLoginYieldsCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, err := f.svc.Register(ctx, registerRequest("Ada@Example.com"), ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", registered.User.Email)
	assert.Equal(t, enums.RoleCustomer, registered.User.Role)
	assert.NotEmpty(t, registered.RefreshToken)

	result, err := f.svc.Login(ctx, LoginRequest{Email: "ADA@example.com", Password: "s3cretpass"}, ClientInfo{UserAgent: "test"})
	require.NoError(t, err)
	assert.Equal(t, TokenTypeBearer, result.TokenType)
	assert.Equal(t, int64(900), result.ExpiresIn)
	require.NotNil(t, result.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleCustomer, claims.Role)
	assert.Equal(t, registered.User.ID, claims.UserID)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventUserRegistered, events[0].EventType)
}

func TestRegisterRejectsDuplicateEmailIgnoringCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerRequest("dup@example.com"), ClientInfo{})
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, registerRequest("DUP@example.com"), ClientInfo{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, "email already registered", pkgerrors.As(err).Message())
}

func TestRegisterAllowsEmailOfDeletedUser(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "gone@example.com", "whatever1", enums.RoleCustomer, enums.UserStatusDeleted)

	_, err := f.svc.Register(context.Background(), registerRequest("gone@example.com"), ClientInfo{})
	require.NoError(t, err)
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "active@example.com", "right-pass1", enums.RoleCustomer, enums.UserStatusActive)
	f.seedUser(t, "suspended@example.com", "right-pass1", enums.RoleCustomer, enums.UserStatusSuspended)

	cases := []LoginRequest{
		{Email: "missing@example.com", Password: "right-pass1"},
		{Email: "active@example.com", Password: "wrong-pass1"},
		{Email: "suspended@example.com", Password: "right-pass1"},
	}
	for _, req := range cases {
		_, err := f.svc.Login(context.Background(), req, ClientInfo{})
		require.Error(t, err, req.Email)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
		assert.Equal(t, "invalid email or password", typed.Message())
	}
}

func TestLoginUpgradesStaleHash(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "legacy@example.com", "right-pass1", enums.RoleCustomer, enums.UserStatusActive)
	weak := config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 2, ArgonParallelism: 1}
	stale, err := security.HashPassword("right-pass1", weak)
	require.NoError(t, err)
	require.NoError(t, f.conn.Model(&models.User{}).Where("id = ?", user.ID).Update("password_hash", stale).Error)

	_, err = f.svc.Login(context.Background(), LoginRequest{Email: "legacy@example.com", Password: "right-pass1"}, ClientInfo{})
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, f.conn.First(&stored, user.ID).Error)
	assert.NotEqual(t, stale, stored.PasswordHash)
	assert.False(t, security.NeedsRehash(stored.PasswordHash, testPassword))
}

func TestAdminLoginRequiresAdminAccess(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "shopper@example.com", "right-pass1", enums.RoleCustomer, enums.UserStatusActive)
	f.seedUser(t, "staff@example.com", "right-pass1", enums.RoleViewer, enums.UserStatusActive)

	_, err := f.svc.AdminLogin(context.Background(), LoginRequest{Email: "shopper@example.com", Password: "right-pass1"}, ClientInfo{})
	require.Error(t, err)
	assert.Equal(t, "invalid email or password", pkgerrors.As(err).Message())

	result, err := f.svc.AdminLogin(context.Background(), LoginRequest{Email: "staff@example.com", Password: "right-pass1"}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleViewer, result.User.Role)
}

func TestRefreshRotatesAndSecondUseFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login, err := f.svc.Register(ctx, registerRequest("rotate@example.com"), ClientInfo{})
	require.NoError(t, err)

	rotated, err := f.svc.Refresh(ctx, login.RefreshToken, ClientInfo{})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	_, err = f.svc.Refresh(ctx, login.RefreshToken, ClientInfo{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Refresh(ctx, rotated.RefreshToken, ClientInfo{})
	require.NoError(t, err)
}

func TestConcurrentRefreshHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login, err := f.svc.Register(ctx, registerRequest("race@example.com"), ClientInfo{})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Refresh(ctx, login.RefreshToken, ClientInfo{}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestRefreshRejectsSuspendedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login, err := f.svc.Register(ctx, registerRequest("later-suspended@example.com"), ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, f.conn.Model(&models.User{}).Where("id = ?", login.User.ID).Update("status", enums.UserStatusSuspended).Error)

	_, err = f.svc.Refresh(ctx, login.RefreshToken, ClientInfo{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login, err := f.svc.Register(ctx, registerRequest("bye@example.com"), ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, login.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, login.RefreshToken))
	require.NoError(t, f.svc.Logout(ctx, ""))

	_, err = f.svc.Refresh(ctx, login.RefreshToken, ClientInfo{})
	require.Error(t, err)
}

func TestLogoutAllThenRefreshFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Register(ctx, registerRequest("everywhere@example.com"), ClientInfo{})
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, LoginRequest{Email: "everywhere@example.com", Password: "s3cretpass"}, ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, f.svc.LogoutAll(ctx, first.User.ID))

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		_, err := f.svc.Refresh(ctx, token, ClientInfo{})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	login, err := f.svc.Register(ctx, registerRequest("changer@example.com"), ClientInfo{})
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, login.User.ID, ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "n3wpassword"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))
	assert.Equal(t, "current password is incorrect", pkgerrors.As(err).Message())

	require.NoError(t, f.svc.ChangePassword(ctx, login.User.ID, ChangePasswordRequest{CurrentPassword: "s3cretpass", NewPassword: "n3wpassword"}))

	_, err = f.svc.Refresh(ctx, login.RefreshToken, ClientInfo{})
	require.Error(t, err, "sessions are revoked after a password change")

	_, err = f.svc.Login(ctx, LoginRequest{Email: "changer@example.com", Password: "s3cretpass"}, ClientInfo{})
	require.Error(t, err)
	_, err = f.svc.Login(ctx, LoginRequest{Email: "changer@example.com", Password: "n3wpassword"}, ClientInfo{})
	require.NoError(t, err)
}

func TestPasswordResetPlaceholders(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.ForgotPassword(context.Background(), "nobody@example.com"))

	err := f.svc.ResetPassword(context.Background(), ResetPasswordRequest{Token: "x", Password: "n3wpassword"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotImplemented))
}

func TestTokenRepositoryDeleteExpired(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "sweep@example.com", "right-pass1", enums.RoleCustomer, enums.UserStatusActive)
	now := time.Now().UTC()
	for i, expires := range []time.Time{now.Add(-2 * time.Hour), now.Add(-time.Minute), now.Add(time.Hour)} {
		require.NoError(t, f.tokens.Insert(context.Background(), &models.RefreshToken{
			UserID:    user.ID,
			TokenHash: session.HashToken(string(rune('a' + i))),
			JTI:       "jti",
			ExpiresAt: expires,
		}))
	}

	deleted, err := f.tokens.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining int64
	require.NoError(t, f.conn.Model(&models.RefreshToken{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestTokenRepositoryWithinTxRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "tx@example.com", "right-pass1", enums.RoleCustomer, enums.UserStatusActive)
	hash := session.HashToken("kept")
	require.NoError(t, f.tokens.Insert(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hash,
		JTI:       "jti",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}))

	failure := errors.New("insert failed")
	err := f.tokens.WithinTx(ctx, func(store session.Store) error {
		deleted, err := store.DeleteByHash(ctx, hash)
		require.NoError(t, err)
		require.Equal(t, int64(1), deleted)
		return failure
	})
	require.ErrorIs(t, err, failure)

	_, err = f.tokens.FindByHash(ctx, hash)
	require.NoError(t, err, "the delete must roll back with the failed transaction")
}
