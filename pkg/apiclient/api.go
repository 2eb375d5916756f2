package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     *string   `json:"phone,omitempty"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResult is returned by login, register and refresh.
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *User  `json:"user,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type Product struct {
	ID             uint             `json:"id"`
	CategoryID     *uint            `json:"category_id,omitempty"`
	Name           string           `json:"name"`
	Slug           string           `json:"slug"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	Stock          int              `json:"stock"`
	ImageURL       *string          `json:"image_url,omitempty"`
	RatingAverage  decimal.Decimal  `json:"rating_average"`
	RatingCount    int              `json:"rating_count"`
}

type ProductPage struct {
	Items      []Product
	Pagination Pagination
}

// ProductQuery maps to the catalog listing filters. Zero values are omitted.
type ProductQuery struct {
	CategoryID uint
	Search     string
	Sort       string
	InStock    bool
	Page       int
	Limit      int
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.CategoryID > 0 {
		v.Set("category_id", strconv.FormatUint(uint64(q.CategoryID), 10))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.InStock {
		v.Set("in_stock", "true")
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

type OrderItemInput struct {
	ProductID uint              `json:"product_id"`
	Quantity  int               `json:"quantity"`
	Variant   map[string]string `json:"variant,omitempty"`
}

// PlaceOrderInput omits Items to check out the server-side cart.
type PlaceOrderInput struct {
	Items             []OrderItemInput `json:"items,omitempty"`
	ShippingAddressID uint             `json:"shipping_address_id"`
	BillingAddressID  *uint            `json:"billing_address_id,omitempty"`
	PaymentMethodID   *uint            `json:"payment_method_id,omitempty"`
	CouponCode        *string          `json:"coupon_code,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
}

type OrderItem struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type Order struct {
	ID            uint            `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Shipping      decimal.Decimal `json:"shipping"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Login authenticates and stores the returned pair.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/login",
		Body:   loginRequest{Email: email, Password: password},
	})
	if err != nil {
		return nil, err
	}
	var out AuthResult
	if err := decodeEnvelope(resp, &out); err != nil {
		return nil, err
	}
	c.saveTokens(Tokens{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken})
	return &out, nil
}

// Refresh rotates the stored pair explicitly, sharing any refresh already in flight.
func (c *Client) Refresh(ctx context.Context) (Tokens, error) {
	return c.refreshShared(ctx, c.Tokens().RefreshToken)
}

// Logout revokes the stored refresh token and clears local credentials even
// when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	tokens := c.Tokens()
	defer c.saveTokens(Tokens{})
	if tokens.RefreshToken == "" {
		return nil
	}
	resp, err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/v1/auth/logout",
		Body:   refreshRequest{RefreshToken: tokens.RefreshToken},
	})
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, nil)
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/v1/users/me"})
	if err != nil {
		return nil, err
	}
	var out User
	if err := decodeEnvelope(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/api/v1/products", Query: q.values()})
	if err != nil {
		return nil, err
	}
	page := &ProductPage{}
	if err := decodeList(resp, &page.Items, &page.Pagination); err != nil {
		return nil, err
	}
	return page, nil
}

// PlaceOrder submits an order. A non-empty idempotencyKey makes retries safe.
func (c *Client) PlaceOrder(ctx context.Context, input PlaceOrderInput, idempotencyKey string) (*Order, error) {
	req := Request{Method: http.MethodPost, Path: "/api/v1/orders", Body: input}
	if idempotencyKey != "" {
		req.Header = http.Header{"Idempotency-Key": []string{idempotencyKey}}
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	var out Order
	if err := decodeEnvelope(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) saveTokens(t Tokens) {
	c.gate.Lock()
	defer c.gate.Unlock()
	if t == (Tokens{}) {
		c.store.Clear()
		return
	}
	c.store.Save(t)
}

type successEnvelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

type errorEnvelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

func decodeEnvelope(resp *http.Response, out any) error {
	env, err := readEnvelope(resp)
	if err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func decodeList(resp *http.Response, items any, pagination *Pagination) error {
	env, err := readEnvelope(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(env.Data, items); err != nil {
		return fmt.Errorf("decode list: %w", err)
	}
	if env.Pagination != nil {
		*pagination = *env.Pagination
	}
	return nil
}

func readEnvelope(resp *http.Response) (*successEnvelope, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env errorEnvelope
		if json.Unmarshal(body, &env) == nil && env.Error != "" {
			apiErr.Code = env.Code
			apiErr.Message = env.Error
			apiErr.Details = env.Errors
		}
		return nil, apiErr
	}

	var env successEnvelope
	if len(body) == 0 {
		return &env, nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}
