package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/api/validators"
	"github.com/angelmondragon/storefront-api/internal/users"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// MeProfile returns the authenticated user's profile.
func MeProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "users")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		user, err := svc.GetMe(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func MeUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "users")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		var body users.UpdateMeRequest
		if !decode(w, r, logg, &body) {
			return
		}
		user, err := svc.UpdateMe(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// AdminUserList supports role, status and search filters.
func AdminUserList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "users")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := optionalEnum(r, "role", enums.ParseRole)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := optionalEnum(r, "status", enums.ParseUserStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters := users.ListFilters{
			Role:   role,
			Status: status,
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
		}
		page, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page)
	}
}

func AdminUserGet(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "users")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		user, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// AdminUserUpdateRole changes a user's role. Grant rules live in the service.
func AdminUserUpdateRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "users")
			return
		}
		actorID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body users.UpdateRoleRequest
		if !decode(w, r, logg, &body) {
			return
		}
		role, err := enums.ParseRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}
		user, err := svc.UpdateRole(r.Context(), actorID, roleOf(r), id, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func AdminUserUpdateStatus(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "users")
			return
		}
		actorID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body users.UpdateStatusRequest
		if !decode(w, r, logg, &body) {
			return
		}
		status, err := enums.ParseUserStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		user, err := svc.UpdateStatus(r.Context(), actorID, roleOf(r), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func AdminUserDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "users")
			return
		}
		actorID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), actorID, roleOf(r), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "user deleted", nil)
	}
}
