package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientIPResolution(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	cases := []struct {
		name    string
		remote  string
		xff     string
		realIP  string
		trusted []netip.Prefix
		want    string
	}{
		{"no proxies ignores forwarded headers", "198.51.100.4:5000", "203.0.113.9", "203.0.113.10", nil, "198.51.100.4"},
		{"untrusted peer cannot spoof", "198.51.100.4:5000", "1.2.3.4", "", proxies, "198.51.100.4"},
		{"rightmost untrusted hop wins", "10.0.0.2:443", "1.2.3.4, 203.0.113.9, 10.0.0.5", "", proxies, "203.0.113.9"},
		{"all hops trusted falls to leftmost", "10.0.0.2:443", "10.0.0.7, 10.0.0.5", "", proxies, "10.0.0.7"},
		{"garbage hop stops the walk", "10.0.0.2:443", "evil, 10.0.0.5", "", proxies, "10.0.0.5"},
		{"real ip from trusted peer", "10.0.0.2:443", "", "203.0.113.11", proxies, "203.0.113.11"},
		{"trusted peer without headers", "10.0.0.2:443", "", "", proxies, "10.0.0.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}

			var got string
			ClientIP(tc.trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = clientIP(r)
			})).ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRotatingForwardedForDoesNotEscapeRateLimit(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int64{}}
	handler := ClientIP(nil)(RateLimit(limiter, 2, time.Minute, nil)(okHandler()))

	var last int
	for _, spoofed := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		req.RemoteAddr = "198.51.100.4:5000"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
