package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// ErrWrongTokenType is returned when a refresh token is presented as an access
// token or the other way around.
var ErrWrongTokenType = errors.New("unexpected token type")

// MintAccessToken issues a signed JWT for the provided payload using the configured TTL.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := requireSigningConfig(cfg); err != nil {
		return "", err
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", fmt.Errorf("jwt expiration minutes must be positive")
	}
	if payload.UserID == 0 {
		return "", fmt.Errorf("user id is required")
	}
	if !payload.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := AccessTokenClaims{
		UserID:           payload.UserID,
		Email:            payload.Email,
		Role:             payload.Role,
		TokenType:        TokenTypeAccess,
		RegisteredClaims: registeredClaims(cfg.Issuer, payload.UserID, jti, now, cfg.AccessTokenTTL()),
	}
	return sign(claims, cfg.Secret)
}

// MintRefreshToken issues a signed refresh JWT. The returned claims carry the
// jti and expiry the caller must persist.
func MintRefreshToken(cfg config.JWTConfig, now time.Time, userID uint) (string, *RefreshTokenClaims, error) {
	if err := requireSigningConfig(cfg); err != nil {
		return "", nil, err
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return "", nil, fmt.Errorf("refresh token ttl must be positive")
	}
	if userID == 0 {
		return "", nil, fmt.Errorf("user id is required")
	}

	claims := &RefreshTokenClaims{
		UserID:           userID,
		TokenType:        TokenTypeRefresh,
		RegisteredClaims: registeredClaims(cfg.Issuer, userID, uuid.NewString(), now, ttl),
	}
	signed, err := sign(claims, cfg.RefreshSigningSecret())
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseAccessToken validates the JWT string and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &AccessTokenClaims{}
	if err := parse(tokenString, claims, cfg.Secret, cfg.Issuer, true); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ParseAccessTokenAllowExpired parses the JWT without validating exp/nbf.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &AccessTokenClaims{}
	if err := parse(tokenString, claims, cfg.Secret, cfg.Issuer, false); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ParseRefreshToken verifies signature, issuer, expiry and token type.
func ParseRefreshToken(cfg config.JWTConfig, tokenString string) (*RefreshTokenClaims, error) {
	secret := cfg.RefreshSigningSecret()
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &RefreshTokenClaims{}
	if err := parse(tokenString, claims, secret, cfg.Issuer, true); err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrWrongTokenType
	}
	if claims.ID == "" || claims.UserID == 0 {
		return nil, fmt.Errorf("refresh token missing identity claims")
	}
	return claims, nil
}

func requireSigningConfig(cfg config.JWTConfig) error {
	if cfg.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return fmt.Errorf("jwt issuer is required")
	}
	return nil
}

func registeredClaims(issuer string, userID uint, jti string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   fmt.Sprintf("%d", userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        jti,
	}
}

func sign(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func parse(tokenString string, claims jwt.Claims, secret, issuer string, validateClaims bool) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(issuer),
	}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	_, err := jwt.NewParser(opts...).ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	return err
}
