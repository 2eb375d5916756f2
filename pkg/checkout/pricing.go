// Package checkout holds the pricing and stock rules shared by the cart
// preview and order placement.
package checkout

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-api/pkg/config"
)

var hundred = decimal.NewFromInt(100)

// Pricing carries the shipping and tax settings applied to a subtotal.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
	TaxRate               decimal.Decimal
}

// NewPricing reads the monetary settings from the orders config.
func NewPricing(cfg config.OrdersConfig) Pricing {
	threshold, shipping, rate := cfg.Pricing()
	return Pricing{FreeShippingThreshold: threshold, FlatShipping: shipping, TaxRate: rate}
}

// DefaultPricing is free shipping from 100.00, 9.99 flat otherwise, 8% tax.
func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: hundred,
		FlatShipping:          decimal.RequireFromString("9.99"),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

// Line is one priced quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Total returns unit price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// Totals is the money breakdown rendered on carts and stored on orders.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Compute prices lines. An empty set of lines costs nothing, shipping included.
func (p Pricing) Compute(lines []Line, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total())
	}

	shipping := p.FlatShipping
	if len(lines) == 0 || subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	gross := subtotal.Add(shipping).Add(tax)
	if discount.GreaterThan(gross) {
		discount = gross
	}

	return Totals{
		Subtotal: subtotal.Round(2),
		Shipping: shipping.Round(2),
		Tax:      tax,
		Discount: discount.Round(2),
		Total:    gross.Sub(discount).Round(2),
	}
}

// CouponResolver turns a coupon code into a discount on subtotal.
type CouponResolver interface {
	Resolve(ctx context.Context, code string, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// NoCoupons accepts any code and never discounts.
type NoCoupons struct{}

func (NoCoupons) Resolve(context.Context, string, decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
