package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-api/api/middleware"
	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/api/validators"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
)

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

// requireUser returns the authenticated user id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uint, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == 0 {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return 0, false
	}
	return userID, true
}

func actorFrom(r *http.Request) outbox.ActorRef {
	return outbox.ActorRef{
		UserID: middleware.UserIDFromContext(r.Context()),
		Role:   string(middleware.RoleFromContext(r.Context())),
	}
}

// idParam parses a numeric URL parameter or writes a validation error.
func idParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger, key string) (uint, bool) {
	id, err := validators.ParseIDParam(r, key)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, logg *logger.Logger, dest any) bool {
	if err := validators.DecodeJSONBody(r, dest); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return false
	}
	return true
}

func optionalEnum[T ~string](r *http.Request, key string, parse func(string) (T, error)) (*T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid query parameter").WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

func clientIP(r *http.Request) string {
	if ip := middleware.ClientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func roleOf(r *http.Request) enums.Role {
	return middleware.RoleFromContext(r.Context())
}
