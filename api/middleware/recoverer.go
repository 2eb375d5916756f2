package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/storefront-api/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. When the handler had
// already started its response the panic is only logged.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				err := pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %v", v), "panic")
				ctx := logg.WithFields(r.Context(), map[string]any{"method": r.Method, "path": r.URL.Path})
				if rec.status != 0 {
					logg.Error(ctx, "panic after response started", err)
					return
				}
				responses.WriteError(ctx, logg, w, err)
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
