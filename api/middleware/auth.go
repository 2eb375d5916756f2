package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-api/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-api/pkg/auth"
	"github.com/angelmondragon/storefront-api/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

const authChallenge = `Bearer realm="storefront"`

// Auth admits requests carrying a valid access token and records who made
// them. Refresh tokens, tokens without a user, and unknown roles are refused.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deny := func(err *pkgerrors.Error) {
				w.Header().Set("WWW-Authenticate", authChallenge)
				responses.WriteError(r.Context(), logg, w, err)
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				deny(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.UserID == 0 || !claims.Role.IsValid() {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token"))
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Role, claims.Email)
			ctx = logg.WithActorRole(logg.WithUserID(ctx, claims.UserID), string(claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the credential from "Bearer <token>". The scheme is
// case insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
