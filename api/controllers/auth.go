package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/internal/auth"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

func clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{UserAgent: r.UserAgent(), IPAddress: clientIP(r)}
}

// AuthRegister creates a customer account and signs it in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		var body auth.RegisterRequest
		if !decode(w, r, logg, &body) {
			return
		}
		result, err := svc.Register(r.Context(), body, clientInfo(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// AuthLogin wires the customer login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return login(logg, svc, func(r *http.Request, body auth.LoginRequest) (*auth.AuthResult, error) {
		return svc.Login(r.Context(), body, clientInfo(r))
	})
}

// AdminAuthLogin only admits staff roles.
func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return login(logg, svc, func(r *http.Request, body auth.LoginRequest) (*auth.AuthResult, error) {
		return svc.AdminLogin(r.Context(), body, clientInfo(r))
	})
}

func login(logg *logger.Logger, svc auth.Service, do func(*http.Request, auth.LoginRequest) (*auth.AuthResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		var body auth.LoginRequest
		if !decode(w, r, logg, &body) {
			return
		}
		result, err := do(r, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthRefresh rotates the refresh token and returns a fresh pair.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		var body auth.RefreshRequest
		if !decode(w, r, logg, &body) {
			return
		}
		result, err := svc.Refresh(r.Context(), body.RefreshToken, clientInfo(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		var body auth.LogoutRequest
		if !decode(w, r, logg, &body) {
			return
		}
		if err := svc.Logout(r.Context(), body.RefreshToken); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "logged out", nil)
	}
}

// AuthLogoutAll revokes every refresh token of the caller.
func AuthLogoutAll(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		if err := svc.LogoutAll(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "logged out from all devices", nil)
	}
}

func AuthChangePassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		var body auth.ChangePasswordRequest
		if !decode(w, r, logg, &body) {
			return
		}
		if err := svc.ChangePassword(r.Context(), userID, body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "password changed", nil)
	}
}

// AuthForgotPassword answers the same way whether or not the email exists.
func AuthForgotPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		var body auth.ForgotPasswordRequest
		if !decode(w, r, logg, &body) {
			return
		}
		if err := svc.ForgotPassword(r.Context(), body.Email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusAccepted, "if the account exists a reset link has been sent", nil)
	}
}

func AuthResetPassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "auth")
			return
		}
		var body auth.ResetPasswordRequest
		if !decode(w, r, logg, &body) {
			return
		}
		if err := svc.ResetPassword(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "password reset", nil)
	}
}

type permissionsResponse struct {
	Role        enums.Role                        `json:"role"`
	Permissions []enums.Permission                `json:"permissions"`
	Matrix      map[enums.Role][]enums.Permission `json:"matrix"`
}

// AuthPermissions exposes the role to permission map the server enforces.
func AuthPermissions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := roleOf(r)
		responses.WriteSuccess(w, permissionsResponse{
			Role:        role,
			Permissions: enums.PermissionsFor(role),
			Matrix:      enums.PermissionMatrix(),
		})
	}
}
