package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-api/pkg/enums"
)

type identityKey struct{}

// identity is the caller as established by Auth from the access token claims.
type identity struct {
	userID uint
	role   enums.Role
	email  string
}

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

// UserIDFromContext returns the authenticated user id, or 0 when absent.
func UserIDFromContext(ctx context.Context) uint { return identityFrom(ctx).userID }

// RoleFromContext returns "" for anonymous requests.
func RoleFromContext(ctx context.Context) enums.Role { return identityFrom(ctx).role }

func EmailFromContext(ctx context.Context) string { return identityFrom(ctx).email }

// WithIdentity injects the caller identity. Auth uses it and tests call it directly.
func WithIdentity(ctx context.Context, userID uint, role enums.Role, email string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, identity{userID: userID, role: role, email: email})
}
