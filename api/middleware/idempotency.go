package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-api/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-api/pkg/redis"
)

const (
	idempotencyHeader    = "Idempotency-Key"
	replayHeader         = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 255
	maxReplayBody        = 1 << 20

	writeReplayTTL    = 24 * time.Hour
	checkoutReplayTTL = 7 * 24 * time.Hour
	// inFlightTTL bounds how long a crashed request can hold its key.
	inFlightTTL = 2 * time.Minute
)

// idempotentWrite is one replayable endpoint. Paths are matched literally
// except for "*" segments, which match any single id.
type idempotentWrite struct {
	method string
	path   []string
	ttl    time.Duration
}

func write(method, path string, ttl time.Duration) idempotentWrite {
	return idempotentWrite{method: method, path: splitPath(path), ttl: ttl}
}

var idempotentWrites = []idempotentWrite{
	write(http.MethodPost, "/api/v1/auth/register", writeReplayTTL),
	write(http.MethodPost, "/api/v1/contact", writeReplayTTL),
	write(http.MethodPost, "/api/v1/cart/items", writeReplayTTL),
	write(http.MethodPost, "/api/v1/wishlist", writeReplayTTL),
	write(http.MethodPost, "/api/v1/addresses", writeReplayTTL),
	write(http.MethodPost, "/api/v1/payment-methods", writeReplayTTL),
	write(http.MethodPost, "/api/v1/products/*/reviews", writeReplayTTL),
	write(http.MethodPut, "/api/v1/admin/orders/*/status", writeReplayTTL),
	write(http.MethodPut, "/api/v1/admin/orders/*/payment-status", writeReplayTTL),
	write(http.MethodPost, "/api/v1/orders", checkoutReplayTTL),
	write(http.MethodPost, "/api/v1/orders/*/cancel", checkoutReplayTTL),
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

func replayTTL(method, path string) (time.Duration, bool) {
	segments := splitPath(path)
next:
	for _, w := range idempotentWrites {
		if w.method != method || len(w.path) != len(segments) {
			continue
		}
		for i, want := range w.path {
			if want != "*" && want != segments[i] {
				continue next
			}
		}
		return w.ttl, true
	}
	return 0, false
}

// storedResponse is the Redis value for a finished request. InFlight marks a
// key claimed by a request that has not answered yet.
type storedResponse struct {
	InFlight    bool   `json:"in_flight,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency makes the writes listed above safe to retry. The first request
// carrying an Idempotency-Key claims it, runs, and stores its response; later
// requests with the same key and body get that response replayed. Requests
// without the header run normally.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			provided := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			ttl, replayable := replayTTL(r.Method, r.URL.Path)
			if provided == "" || !replayable {
				next.ServeHTTP(w, r)
				return
			}
			if len(provided) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxReplayBody+1))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "read request body"))
				return
			}
			if len(body) > maxReplayBody {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body is larger than 1 MiB"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := requestFingerprint(body)
			key := store.IdempotencyKey(replayScope(r), provided)

			claimed, err := claim(ctx, store, key, fingerprint)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replay(ctx, store, logg, w, key, fingerprint)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			finish(ctx, store, logg, key, fingerprint, capture, ttl)
		})
	}
}

func claim(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string) (bool, error) {
	marker, err := json.Marshal(storedResponse{InFlight: true, RequestHash: fingerprint})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(marker), inFlightTTL)
}

func replay(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, w http.ResponseWriter, key, fingerprint string) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotent request expired mid-flight, retry"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case stored.RequestHash != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case stored.InFlight:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(replayHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// finish stores the captured response. A 5xx releases the key so the client
// can retry for real.
func finish(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, key, fingerprint string, capture *responseCapture, ttl time.Duration) {
	ctx = context.WithoutCancel(ctx)
	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		if err := store.Del(ctx, key); err != nil && logg != nil {
			logg.Error(ctx, "release idempotency key", err)
		}
		return
	}

	payload, err := json.Marshal(storedResponse{
		RequestHash: fingerprint,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err == nil {
		err = store.Set(ctx, key, string(payload), ttl)
	}
	if err != nil && logg != nil {
		logg.Error(ctx, "persist idempotent response", err)
	}
}

// replayScope keys by caller and path so two customers cannot collide on a
// client generated key.
func replayScope(r *http.Request) string {
	return strconv.FormatUint(uint64(UserIDFromContext(r.Context())), 10) + "|" + r.Method + "|" + r.URL.Path
}

func requestFingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
