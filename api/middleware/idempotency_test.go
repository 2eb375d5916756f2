package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func orderRequest(body, key string, userID uint) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(WithIdentity(req.Context(), userID, enums.RoleCustomer, "buyer@example.com"))
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{http.MethodPost, "/api/v1/orders", checkoutReplayTTL, true},
		{http.MethodPost, "/api/v1/orders/12/cancel", checkoutReplayTTL, true},
		{http.MethodPost, "/api/v1/auth/register", writeReplayTTL, true},
		{http.MethodPost, "/api/v1/wishlist/", writeReplayTTL, true},
		{http.MethodPut, "/api/v1/admin/orders/3/status", writeReplayTTL, true},
		{http.MethodPut, "/api/v1/admin/orders/3/payment-status", writeReplayTTL, true},
		{http.MethodPost, "/api/v1/orders/12/cancel/extra", 0, false},
		{http.MethodGet, "/api/v1/orders", 0, false},
		{http.MethodPost, "/api/v1/products", 0, false},
	}
	for _, tc := range tests {
		got, ok := replayTTL(tc.method, tc.path)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s %s: got (%v, %v), want (%v, %v)", tc.method, tc.path, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "", 1))
	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "", 1))

	if calls != 2 {
		t.Fatalf("expected both requests to reach the handler, got %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("nothing should be stored without a key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_number":"ORD-1"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{"items":[]}`, "abc", 1))
	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, orderRequest(`{"items":[]}`, "abc", 1))

	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	if replay.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if replay.Code != http.StatusCreated || replay.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected replay: %d %v", replay.Code, replay.Header())
	}
	if strings.TrimSpace(replay.Body.String()) != `{"order_number":"ORD-1"}` {
		t.Fatalf("expected stored body got %s", replay.Body.String())
	}

	other := httptest.NewRecorder()
	handler.ServeHTTP(other, orderRequest(`{"items":[]}`, "abc", 2))
	if calls != 2 {
		t.Fatalf("keys must be scoped per user")
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{"foo":"bar"}`, "xyz", 1))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, orderRequest(`{"foo":"diff"}`, "xyz", 1))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Code)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "retry-me", 1))
	handler.ServeHTTP(httptest.NewRecorder(), orderRequest(`{}`, "retry-me", 1))
	if calls != 2 {
		t.Fatalf("a failed request should be retried, got %d calls", calls)
	}
}

func TestIdempotencyRejectsOversizedBody(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, orderRequest(`{"notes":"`+strings.Repeat("x", maxReplayBody)+`"}`, "big", 1))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an oversized body, got %d", rec.Code)
	}
	if calls != 0 || len(store.data) != 0 {
		t.Fatalf("oversized body must not reach the handler or claim the key")
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	var handler http.Handler
	var nested *httptest.ResponseRecorder
	handler = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if nested == nil {
			nested = httptest.NewRecorder()
			handler.ServeHTTP(nested, orderRequest(`{"cart":1}`, "dup", 1))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, orderRequest(`{"cart":1}`, "dup", 1))

	if first.Code != http.StatusCreated {
		t.Fatalf("expected the first request to complete, got %d", first.Code)
	}
	if nested.Code != http.StatusConflict || !strings.Contains(nested.Body.String(), "in progress") {
		t.Fatalf("expected in-flight conflict, got %d %s", nested.Code, nested.Body.String())
	}
}
