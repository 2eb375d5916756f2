package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/api/validators"
	product "github.com/angelmondragon/storefront-api/internal/products"
	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

const (
	defaultCuratedLimit = 8
	maxCuratedLimit     = 50
)

// productFilters reads the storefront catalog query string.
func productFilters(r *http.Request) (product.ListFilters, error) {
	q := r.URL.Query()
	filters := product.ListFilters{
		CategorySlug: strings.TrimSpace(q.Get("category")),
		Search:       strings.TrimSpace(q.Get("search")),
	}

	if raw := strings.TrimSpace(q.Get("category_id")); raw != "" {
		id, err := validators.ParseQueryInt(r, "category_id", 0, 1, 1<<31-1)
		if err != nil {
			return filters, err
		}
		categoryID := uint(id)
		filters.CategoryID = &categoryID
	}

	var err error
	if filters.MinPrice, err = validators.ParseQueryDecimal(r, "min_price"); err != nil {
		return filters, err
	}
	if filters.MaxPrice, err = validators.ParseQueryDecimal(r, "max_price"); err != nil {
		return filters, err
	}
	if filters.MinPrice != nil && filters.MaxPrice != nil && filters.MinPrice.GreaterThan(*filters.MaxPrice) {
		return filters, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price")
	}
	if filters.Featured, err = validators.ParseQueryBool(r, "featured"); err != nil {
		return filters, err
	}
	inStock, err := validators.ParseQueryBool(r, "in_stock")
	if err != nil {
		return filters, err
	}
	filters.InStock = inStock != nil && *inStock

	sort, err := enums.ParseProductSort(strings.TrimSpace(q.Get("sort")))
	if err != nil {
		return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort").WithDetails(map[string]any{"field": "sort"})
	}
	filters.Sort = sort
	return filters, nil
}

// ProductList serves the paginated storefront catalog.
func ProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		filters, err := productFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page)
	}
}

func ProductSearch(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.Search(r.Context(), r.URL.Query().Get("q"), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page)
	}
}

type curatedFunc func(ctx context.Context, limit int) ([]product.ProductDTO, error)

// ProductCurated serves one of the fixed storefront collections.
func ProductCurated(svc product.Service, collection string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		var fetch curatedFunc
		switch collection {
		case "featured":
			fetch = svc.Featured
		case "new":
			fetch = svc.NewArrivals
		case "flash-sale":
			fetch = svc.FlashSale
		case "best-selling":
			fetch = svc.BestSelling
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultCuratedLimit, 1, maxCuratedLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := fetch(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func ProductBySlug(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		item, err := svc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ProductByID(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		item, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func ProductRelated(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultCuratedLimit, 1, maxCuratedLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.Related(r.Context(), id, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// AdminProductList includes drafts and accepts a status filter.
func AdminProductList(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		filters, err := productFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.Status, err = optionalEnum(r, "status", enums.ParseProductStatus); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.AdminList(r.Context(), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, page)
	}
}

func AdminProductGet(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		item, err := svc.AdminGet(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func AdminProductCreate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		var body product.CreateProductRequest
		if !decode(w, r, logg, &body) {
			return
		}
		item, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func AdminProductUpdate(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body product.UpdateProductRequest
		if !decode(w, r, logg, &body) {
			return
		}
		item, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func AdminProductDelete(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
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
		responses.WriteMessage(w, http.StatusOK, "product deleted", nil)
	}
}

func AdminProductUpdateStock(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body product.UpdateStockRequest
		if !decode(w, r, logg, &body) {
			return
		}
		item, err := svc.UpdateStock(r.Context(), id, body.Stock)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func AdminProductAddImage(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		var body product.AddImageRequest
		if !decode(w, r, logg, &body) {
			return
		}
		item, err := svc.AddImage(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func AdminProductRemoveImage(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "products")
			return
		}
		id, ok := idParam(w, r, logg, "id")
		if !ok {
			return
		}
		imageID, ok := idParam(w, r, logg, "imageId")
		if !ok {
			return
		}
		if err := svc.RemoveImage(r.Context(), id, imageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, "image removed", nil)
	}
}
