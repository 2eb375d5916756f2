package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

func loginRequest(ip, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.RemoteAddr = ip + ":5678"
	return req
}

func TestThrottleAuthPreservesBody(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	var seen string
	handler := ThrottleAuth(AuthThrottle{Name: "login", Window: time.Minute, PerIP: 5, PerEmail: 5}, limiter, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			seen = string(body)
			w.WriteHeader(http.StatusOK)
		}))

	payload := `{"email":"shopper@example.com","password":"secret"}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("1.2.3.4", payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, seen)
	assert.Contains(t, limiter.counts, "auth:login:ip:1.2.3.4")
	for scope := range limiter.counts {
		assert.NotContains(t, scope, "shopper@example.com")
	}
}

func TestThrottleAuthEmailBudgetIgnoresCaseAndIP(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	handler := ThrottleAuth(AuthThrottle{Name: "login", Window: time.Minute, PerEmail: 2}, limiter, nil)(okHandler())

	emails := []string{"Target@Example.com", "target@example.com", " TARGET@example.com "}
	for i, email := range emails {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("10.0.0."+string(rune('1'+i)), `{"email":"`+email+`"}`))
		if i < 2 {
			assert.Equal(t, http.StatusOK, rec.Code, email)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), string(pkgerrors.CodeRateLimit))
	}
}

func TestThrottleAuthPerIPKeepsPoliciesApart(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	register := ThrottleAuth(AuthThrottle{Name: "register", Window: time.Minute, PerIP: 1}, limiter, nil)(okHandler())
	login := ThrottleAuth(AuthThrottle{Name: "login", Window: time.Minute, PerIP: 1}, limiter, nil)(okHandler())

	serve := func(h http.Handler) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, loginRequest("5.6.7.8", `{}`))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, serve(register))
	assert.Equal(t, http.StatusTooManyRequests, serve(register))
	assert.Equal(t, http.StatusOK, serve(login))
}

func TestThrottleAuthFailsClosed(t *testing.T) {
	handler := ThrottleAuth(AuthThrottle{Name: "login", Window: time.Minute, PerIP: 1}, &fakeLimiter{err: errors.New("redis down")}, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("1.1.1.1", `{}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestThrottleAuthDisabledPassesThrough(t *testing.T) {
	handler := ThrottleAuth(AuthThrottle{Name: "login"}, nil, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("1.1.1.1", `{}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}
