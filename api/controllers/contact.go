package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/api/validators"
	"github.com/angelmondragon/storefront-api/internal/contact"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// ContactSubmit stores a public contact form message.
func ContactSubmit(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "contact")
			return
		}
		var body contact.SubmitRequest
		if !decode(w, r, logg, &body) {
			return
		}
		msg, err := svc.Submit(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusCreated, "message received", msg)
	}
}

func AdminMessageList(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "contact")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := optionalEnum(r, "status", enums.ParseContactStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page)
	}
}

func AdminMessageGet(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "contact")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		msg, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, msg)
	}
}

func AdminMessageUpdateStatus(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "contact")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body contact.UpdateStatusRequest
		if !decode(w, r, logg, &body) {
			return
		}
		status, err := enums.ParseContactStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		msg, err := svc.UpdateStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, msg)
	}
}

func AdminMessageDelete(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "contact")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "message deleted", nil)
	}
}
