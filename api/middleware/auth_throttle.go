package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-api/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// maxThrottleBody bounds how much of a credential request is buffered to
// find the email. Anything past it is streamed to the handler untouched.
const maxThrottleBody = 64 << 10

// AuthThrottle is the attempt budget for one credential surface such as
// login or register. A zero limit disables that counter.
type AuthThrottle struct {
	Name     string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

func (p AuthThrottle) active() bool {
	return p.Window > 0 && (p.PerIP > 0 || p.PerEmail > 0)
}

func (p AuthThrottle) scope(kind, value string) string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		name = "auth"
	}
	return "auth:" + name + ":" + kind + ":" + value
}

// ThrottleAuth counts attempts per client IP and per hashed email. Unlike the
// global limiter it fails closed: a broken counter store answers 503.
func ThrottleAuth(p AuthThrottle, limiter fixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || !p.active() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if p.PerIP > 0 {
				if ip := clientIP(r); ip != "" && !p.check(ctx, w, limiter, logg, "ip", ip, p.PerIP) {
					return
				}
			}

			if p.PerEmail > 0 && r.Body != nil {
				head, err := io.ReadAll(io.LimitReader(r.Body, maxThrottleBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "read request body"))
					return
				}
				r.Body = readCloser{Reader: io.MultiReader(bytes.NewReader(head), r.Body), Closer: r.Body}

				if digest := emailDigest(head); digest != "" && !p.check(ctx, w, limiter, logg, "email", digest, p.PerEmail) {
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (p AuthThrottle) check(ctx context.Context, w http.ResponseWriter, limiter fixedWindowLimiter, logg *logger.Logger, kind, value string, limit int) bool {
	allowed, retryAfter, err := limiter.FixedWindowAllow(ctx, p.scope(kind, value), int64(limit), p.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auth throttle unavailable"))
		return false
	}
	if allowed {
		return true
	}
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"throttle": p.scope(kind, ""),
			"limit":    limit,
			"window_s": int(p.Window.Seconds()),
			kind:       value,
		}), "auth.throttled")
	}
	writeRateLimited(ctx, w, retryAfter, "too many attempts, try again later")
	return false
}

type readCloser struct {
	io.Reader
	io.Closer
}

// emailDigest returns the sha256 of the normalized "email" field so raw
// addresses never reach the counter store or the logs.
func emailDigest(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
