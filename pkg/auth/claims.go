package auth

import (
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AccessTokenPayload captures the data available when minting an access token.
type AccessTokenPayload struct {
	UserID uint
	Email  string
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims represents the typed access JWT issued to clients.
type AccessTokenClaims struct {
	UserID    uint       `json:"user_id"`
	Email     string     `json:"email"`
	Role      enums.Role `json:"role"`
	TokenType string     `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims carries only the owner and a random jti. Everything else
// is looked up server-side.
type RefreshTokenClaims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}
