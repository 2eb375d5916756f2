// Package apiclient is an HTTP client for the storefront API that keeps its
// access token fresh. Concurrent requests that hit 401 share one refresh.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	refreshPath     = "/api/v1/auth/refresh"
	defaultTimeout  = 15 * time.Second
	maxErrorPayload = 64 << 10
)

// Paths that answer 401 for bad credentials rather than a stale token.
var unauthenticatedPaths = map[string]bool{
	"/api/v1/auth/login":       true,
	"/api/v1/auth/admin/login": true,
	"/api/v1/auth/register":    true,
	refreshPath:                true,
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	store   TokenStore

	// gate is write-held for the duration of a refresh; every request reads
	// its token under the read lock, so none is sent mid-refresh.
	gate     sync.RWMutex
	flight   singleflight.Group
	onLogout func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTokenStore(store TokenStore) Option {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

// WithLogoutHook registers fn to run when a failed refresh clears credentials.
func WithLogoutHook(fn func()) Option {
	return func(c *Client) { c.onLogout = fn }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: defaultTimeout},
		store:   NewMemoryStore(Tokens{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tokens returns the credentials currently held.
func (c *Client) Tokens() Tokens {
	c.gate.RLock()
	defer c.gate.RUnlock()
	return c.store.Load()
}

// Request describes one API call. Body is JSON encoded when non-nil.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

type preparedRequest struct {
	Request
	payload []byte
}

// Do sends an authenticated request. A 401 triggers at most one refresh and
// one retry; if the refresh is rejected the original 401 response is
// returned and stored credentials are cleared.
func (c *Client) Do(ctx context.Context, r Request) (*http.Response, error) {
	payload, err := encodeBody(r.Body)
	if err != nil {
		return nil, err
	}
	req := preparedRequest{Request: r, payload: payload}

	sent := c.Tokens()
	resp, err := c.send(ctx, req, sent.AccessToken)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || unauthenticatedPaths[r.Path] {
		return resp, err
	}

	// Tokens blocks while a refresh holds the gate, so current reflects any
	// refresh that ran while this request was in flight.
	current := c.Tokens()
	switch {
	case current.RefreshToken != sent.RefreshToken && current.AccessToken == "":
		// That refresh was rejected and cleared the credentials.
		return resp, nil
	case current.AccessToken != "" &&
		(current.AccessToken != sent.AccessToken || current.RefreshToken != sent.RefreshToken):
		drain(resp)
		return c.send(ctx, req, current.AccessToken)
	}

	fresh, err := c.refreshShared(ctx, sent.RefreshToken)
	if err != nil {
		if isRejection(err) {
			return resp, nil
		}
		drain(resp)
		return nil, err
	}
	drain(resp)
	return c.send(ctx, req, fresh.AccessToken)
}

// refreshShared exchanges refreshToken once no matter how many callers ask
// for it concurrently.
func (c *Client) refreshShared(ctx context.Context, refreshToken string) (Tokens, error) {
	if refreshToken == "" {
		c.forceLogout()
		return Tokens{}, ErrNoRefreshToken
	}
	v, err, _ := c.flight.Do(refreshToken, func() (any, error) {
		c.gate.Lock()
		defer c.gate.Unlock()

		// A flight for this token may have completed between our 401 and
		// acquiring the gate. Either it rotated the token or it cleared it.
		if current := c.store.Load(); current.RefreshToken != refreshToken {
			if current.AccessToken == "" {
				return Tokens{}, ErrNoRefreshToken
			}
			return current, nil
		}

		tokens, err := c.exchange(ctx, refreshToken)
		if err != nil {
			if isRejection(err) {
				c.store.Clear()
				if c.onLogout != nil {
					c.onLogout()
				}
			}
			return Tokens{}, err
		}
		c.store.Save(tokens)
		return tokens, nil
	})
	if err != nil {
		return Tokens{}, err
	}
	return v.(Tokens), nil
}

// isRejection separates an answer from the API from a transport failure.
func isRejection(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) || errors.Is(err, ErrNoRefreshToken)
}

func (c *Client) forceLogout() {
	c.gate.Lock()
	c.store.Clear()
	c.gate.Unlock()
	if c.onLogout != nil {
		c.onLogout()
	}
}

func (c *Client) exchange(ctx context.Context, refreshToken string) (Tokens, error) {
	payload, err := encodeBody(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return Tokens{}, err
	}
	resp, err := c.send(ctx, preparedRequest{
		Request: Request{Method: http.MethodPost, Path: refreshPath},
		payload: payload,
	}, "")
	if err != nil {
		return Tokens{}, err
	}
	var out AuthResult
	if err := decodeEnvelope(resp, &out); err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}, nil
}

func (c *Client) send(ctx context.Context, r preparedRequest, accessToken string) (*http.Response, error) {
	target := *c.baseURL
	target.Path = c.baseURL.Path + r.Path
	if len(r.Query) > 0 {
		target.RawQuery = r.Query.Encode()
	}

	var reader io.Reader
	if r.payload != nil {
		reader = bytes.NewReader(r.payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if r.payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return c.http.Do(req)
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return b, nil
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorPayload))
	_ = resp.Body.Close()
}
