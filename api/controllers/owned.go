package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// ownedStore is the shape shared by resources that belong to one user and
// carry a single default row.
type ownedStore[D, C, U any] interface {
	List(ctx context.Context, userID uint) ([]D, error)
	Get(ctx context.Context, userID, id uint) (*D, error)
	Create(ctx context.Context, userID uint, input C) (*D, error)
	Update(ctx context.Context, userID, id uint, input U) (*D, error)
	Delete(ctx context.Context, userID, id uint) error
	SetDefault(ctx context.Context, userID, id uint) (*D, error)
}

type ownedHandlers[D, C, U any] struct {
	svc  ownedStore[D, C, U]
	name string
	logg *logger.Logger
}

func (h ownedHandlers[D, C, U]) list() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.svc == nil {
			serviceUnavailable(w, r, h.logg, h.name)
			return
		}
		userID, ok := requireUser(w, r, h.logg)
		if !ok {
			return
		}
		items, err := h.svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), h.logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func (h ownedHandlers[D, C, U]) get() http.HandlerFunc {
	return h.byID(func(ctx context.Context, userID, id uint) (*D, error) {
		return h.svc.Get(ctx, userID, id)
	})
}

func (h ownedHandlers[D, C, U]) setDefault() http.HandlerFunc {
	return h.byID(func(ctx context.Context, userID, id uint) (*D, error) {
		return h.svc.SetDefault(ctx, userID, id)
	})
}

func (h ownedHandlers[D, C, U]) byID(do func(ctx context.Context, userID, id uint) (*D, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.svc == nil {
			serviceUnavailable(w, r, h.logg, h.name)
			return
		}
		userID, ok := requireUser(w, r, h.logg)
		if !ok {
			return
		}
		id, ok := idParam(w, r, h.logg, "id")
		if !ok {
			return
		}
		item, err := do(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), h.logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func (h ownedHandlers[D, C, U]) create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.svc == nil {
			serviceUnavailable(w, r, h.logg, h.name)
			return
		}
		userID, ok := requireUser(w, r, h.logg)
		if !ok {
			return
		}
		var body C
		if !decode(w, r, h.logg, &body) {
			return
		}
		item, err := h.svc.Create(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), h.logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func (h ownedHandlers[D, C, U]) update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.svc == nil {
			serviceUnavailable(w, r, h.logg, h.name)
			return
		}
		userID, ok := requireUser(w, r, h.logg)
		if !ok {
			return
		}
		id, ok := idParam(w, r, h.logg, "id")
		if !ok {
			return
		}
		var body U
		if !decode(w, r, h.logg, &body) {
			return
		}
		item, err := h.svc.Update(r.Context(), userID, id, body)
		if err != nil {
			responses.WriteError(r.Context(), h.logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func (h ownedHandlers[D, C, U]) delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.svc == nil {
			serviceUnavailable(w, r, h.logg, h.name)
			return
		}
		userID, ok := requireUser(w, r, h.logg)
		if !ok {
			return
		}
		id, ok := idParam(w, r, h.logg, "id")
		if !ok {
			return
		}
		if err := h.svc.Delete(r.Context(), userID, id); err != nil {
			responses.WriteError(r.Context(), h.logg, w, err)
			return
		}
		responses.WriteMessage(w, http.StatusOK, h.name+" deleted", nil)
	}
}
