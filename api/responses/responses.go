package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/pagination"
	"github.com/angelmondragon/storefront-api/pkg/types"
)

const (
	HeaderTotalCount = "X-Total-Count"
	HeaderTotalPages = "X-Total-Pages"
)

// encodeFailure is written when a payload cannot be marshalled.
var encodeFailure = []byte(`{"success":false,"error":"internal server error","code":"INTERNAL_ERROR"}`)

var exposeInternal atomic.Bool

// ExposeInternalErrors puts the error chain of 5xx answers in the "errors"
// field. cmd/api turns it on outside production.
func ExposeInternalErrors(enabled bool) {
	exposeInternal.Store(enabled)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Success: true, Data: data})
}

func WriteMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Success: true, Data: data, Message: message})
}

// WriteList renders one page. Totals go in the body and in X-Total-*.
func WriteList[T any](w http.ResponseWriter, page pagination.Page[T]) {
	if page.Items == nil {
		page.Items = []T{}
	}
	h := w.Header()
	h.Set(HeaderTotalCount, strconv.FormatInt(page.Meta.Total, 10))
	h.Set(HeaderTotalPages, strconv.Itoa(page.Meta.TotalPages))
	writeJSON(w, http.StatusOK, types.ListEnvelope{Success: true, Data: page.Items, Pagination: page.Meta})
}

// WriteError renders err as an error envelope and logs it: 5xx at error
// level, everything else at warn. Untyped errors are treated as internal.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("nil error written as response")
	}
	status, payload := errorEnvelope(err)

	dump := pkgerrors.Dump(err)
	if status >= http.StatusInternalServerError && exposeInternal.Load() {
		payload.Errors = dump.Chain
	}

	fields := dump.Fields()
	fields["http_status"] = status
	ctx = logg.WithFields(ctx, fields)
	if status >= http.StatusInternalServerError {
		logg.Error(ctx, "request failed", err)
	} else {
		logg.Warn(ctx, "request rejected")
	}

	writeJSON(w, status, payload)
}

func errorEnvelope(err error) (int, types.ErrorEnvelope) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	envelope := types.ErrorEnvelope{Error: meta.PublicMessage, Code: string(typed.Code())}
	if meta.HTTPStatus < http.StatusInternalServerError && typed.Message() != "" {
		envelope.Error = typed.Message()
	}
	if meta.DetailsAllowed && typed.Details() != nil {
		envelope.Errors = typed.Details()
	}
	return meta.HTTPStatus, envelope
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status, body = http.StatusInternalServerError, encodeFailure
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
