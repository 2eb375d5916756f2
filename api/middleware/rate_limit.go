package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/angelmondragon/storefront-api/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, time.Duration, error)
}

// RateLimit caps requests per client IP in a fixed window. A limiter error
// lets the request through so Redis trouble does not take the API down.
func RateLimit(limiter fixedWindowLimiter, limit int, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 || window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)
			allowed, retryAfter, err := limiter.FixedWindowAllow(ctx, "global:"+ip, int64(limit), window)
			if err != nil {
				if logg != nil {
					logg.Error(ctx, "rate limiter unavailable", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "ip", ip), "rate_limit.blocked")
				}
				writeRateLimited(ctx, w, retryAfter, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeRateLimited answers 429 with a Retry-After of at least one second.
func writeRateLimited(ctx context.Context, w http.ResponseWriter, retryAfter time.Duration, msg string) {
	seconds := max(int(retryAfter.Round(time.Second).Seconds()), 1)
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, msg))
}
