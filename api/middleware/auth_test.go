package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-api/pkg/auth"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/enums"
)

func testJWT() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "storefront", ExpirationMinutes: 10, RefreshTokenTTLMinutes: 60}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uint, role enums.Role) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now().UTC(), auth.AccessTokenPayload{UserID: userID, Email: "user@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func serveAuth(t *testing.T, header string, next http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	Auth(testJWT(), nil)(next).ServeHTTP(rec, req)
	return rec
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	token := mintTestToken(t, testJWT(), 42, enums.RoleCustomer)
	for _, header := range []string{"", "Bearer ", "Bearer invalid", token, "Basic " + token} {
		rec := serveAuth(t, header, okHandler())
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Equal(t, `Bearer realm="storefront"`, rec.Header().Get("WWW-Authenticate"))
	}
}

func TestAuthRejectsRefreshToken(t *testing.T) {
	refresh, _, err := auth.MintRefreshToken(testJWT(), time.Now().UTC(), 9)
	require.NoError(t, err)
	rec := serveAuth(t, "Bearer "+refresh, okHandler())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	cfg := testJWT()
	token, err := auth.MintAccessToken(cfg, time.Now().UTC().Add(-time.Hour), auth.AccessTokenPayload{UserID: 3, Role: enums.RoleCustomer})
	require.NoError(t, err)
	rec := serveAuth(t, "Bearer "+token, okHandler())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthSeedsIdentity(t *testing.T) {
	token := mintTestToken(t, testJWT(), 42, enums.RoleEditor)

	var (
		userID uint
		role   enums.Role
		email  string
	)
	rec := serveAuth(t, "bearer "+token, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = UserIDFromContext(r.Context())
		role = RoleFromContext(r.Context())
		email = EmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(42), userID)
	assert.Equal(t, enums.RoleEditor, role)
	assert.Equal(t, "user@example.com", email)
}

func TestRequirePermission(t *testing.T) {
	cases := []struct {
		role enums.Role
		perm enums.Permission
		want int
	}{
		{enums.RoleCustomer, enums.PermAdminAccess, http.StatusForbidden},
		{enums.RoleViewer, enums.PermDashboardView, http.StatusOK},
		{enums.RoleViewer, enums.PermCatalogWrite, http.StatusForbidden},
		{enums.RoleEditor, enums.PermCatalogWrite, http.StatusOK},
		{enums.RoleModerator, enums.PermOrdersManage, http.StatusForbidden},
		{enums.RoleAdmin, enums.PermOrdersManage, http.StatusOK},
		{enums.RoleAdmin, enums.PermRolesGrantAdmin, http.StatusForbidden},
		{enums.RoleSuperAdmin, enums.PermRolesGrantAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), 1, tc.role, ""))
		rec := httptest.NewRecorder()
		RequirePermission(tc.perm, nil)(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "%s -> %s", tc.role, tc.perm)
	}

	rec := httptest.NewRecorder()
	RequirePermission(enums.PermAdminAccess, nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRecovererKeepsStartedResponse(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("late")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestRecovererReraisesAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) }))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestIDEchoesOrMints(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-Id"), 36)

	for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("a", 129)} {
		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", bad)
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.NotEqual(t, bad, rec.Header().Get("X-Request-Id"))
		assert.Len(t, rec.Header().Get("X-Request-Id"), 36)
	}
}
