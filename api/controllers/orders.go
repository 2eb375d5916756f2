package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/api/validators"
	"github.com/angelmondragon/storefront-api/internal/orders"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// OrderPlace checks out the caller's cart, or the explicit item list.
func OrderPlace(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		var body orders.PlaceOrderRequest
		if !decode(w, r, logg, &body) {
			return
		}
		order, err := svc.Place(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListForUser(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page)
	}
}

// OrderGet resolves {id} as either the numeric id or the order number.
func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		order, err := svc.GetForUser(r.Context(), userID, chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func OrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		order, err := svc.Cancel(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrderList filters by status, payment_status, user_id and search.
func AdminOrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters := orders.AdminListFilters{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
		if filters.Status, err = optionalEnum(r, "status", enums.ParseOrderStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.PaymentStatus, err = optionalEnum(r, "payment_status", enums.ParsePaymentStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if r.URL.Query().Get("user_id") != "" {
			raw, err := validators.ParseQueryInt(r, "user_id", 0, 1, 1<<31-1)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			userID := uint(raw)
			filters.UserID = &userID
		}
		page, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page)
	}
}

func AdminOrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminOrderUpdateStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body orders.UpdateStatusRequest
		if !decode(w, r, logg, &body) {
			return
		}
		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		order, err := svc.UpdateStatus(r.Context(), actorFrom(r), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminOrderUpdatePaymentStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "orders")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body orders.UpdatePaymentStatusRequest
		if !decode(w, r, logg, &body) {
			return
		}
		status, err := enums.ParsePaymentStatus(body.PaymentStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
			return
		}
		order, err := svc.UpdatePaymentStatus(r.Context(), actorFrom(r), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
