package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/internal/admin"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// AdminDashboard returns the aggregate store statistics.
func AdminDashboard(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "dashboard")
			return
		}
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
