package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registerBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	Slug     string `json:"slug" validate:"omitempty,slug"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"abcd1234","slug":"red-shoes"}`))
	var body registerBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, "a@b.co", body.Email)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"abcd1234","role":"admin"}`))
	var body registerBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDecodeJSONBodyFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","password":"short","slug":"Bad Slug"}`))
	var body registerBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnprocessable, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Contains(t, details["password"], "at least 8 characters")
	assert.Contains(t, details, "slug")
}

func TestDecodeJSONBodyRejectsEmptyAndTrailingInput(t *testing.T) {
	for name, tc := range map[string]struct {
		body string
		want string
	}{
		"empty":    {body: "", want: "request body is required"},
		"trailing": {body: `{"email":"a@b.co","password":"abcd1234"} {"email":"c@d.co"}`},
		"syntax":   {body: `{"email":`, want: "truncated"},
	} {
		t.Run(name, func(t *testing.T) {
			var body registerBody
			err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body)), &body)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			if tc.want != "" {
				details, ok := typed.Details().(map[string]any)
				require.True(t, ok)
				assert.Contains(t, details["error"], tc.want)
			}
		})
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=2&limit=15", nil)
	params, err := ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 2, params.Page)
	assert.Equal(t, 15, params.Limit)

	_, err = ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=1000", nil))
	assert.Error(t, err)
}

func TestParseQueryDecimalAndBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?min_price=12.50&featured=true", nil)
	price, err := ParseQueryDecimal(req, "min_price")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, "12.5", price.String())

	featured, err := ParseQueryBool(req, "featured")
	require.NoError(t, err)
	require.NotNil(t, featured)
	assert.True(t, *featured)

	missing, err := ParseQueryBool(req, "absent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = ParseQueryDecimal(httptest.NewRequest(http.MethodGet, "/?min_price=-1", nil), "min_price")
	assert.Error(t, err)
}

func TestParseIDParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "42")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	id, err := ParseIDParam(req, "id")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "abc")
	_, err = ParseIDParam(req, "id")
	assert.Error(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
}
