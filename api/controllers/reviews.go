package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/api/validators"
	"github.com/angelmondragon/storefront-api/internal/reviews"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// ProductReviews lists approved reviews of a product.
func ProductReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		productID, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListForProduct(r.Context(), productID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page)
	}
}

func ReviewCreate(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		productID, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body reviews.CreateReviewRequest
		if !decode(w, r, logg, &body) {
			return
		}
		review, err := svc.Create(r.Context(), userID, productID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}

func ReviewUpdate(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		reviewID, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body reviews.UpdateReviewRequest
		if !decode(w, r, logg, &body) {
			return
		}
		review, err := svc.Update(r.Context(), userID, reviewID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}

func ReviewDelete(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		reviewID, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), userID, reviewID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "review deleted", nil)
	}
}

// AdminReviewList filters by product_id and status.
func AdminReviewList(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var filters reviews.ListFilters
		if filters.Status, err = optionalEnum(r, "status", enums.ParseReviewStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if r.URL.Query().Get("product_id") != "" {
			raw, err := validators.ParseQueryInt(r, "product_id", 0, 1, 1<<31-1)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			productID := uint(raw)
			filters.ProductID = &productID
		}
		page, err := svc.AdminList(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page)
	}
}

func AdminReviewModerate(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		reviewID, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body reviews.ModerateRequest
		if !decode(w, r, logg, &body) {
			return
		}
		status, err := enums.ParseReviewStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		review, err := svc.Moderate(r.Context(), reviewID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}

func AdminReviewDelete(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "reviews")
			return
		}
		reviewID, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		if err := svc.AdminDelete(r.Context(), reviewID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "review deleted", nil)
	}
}
