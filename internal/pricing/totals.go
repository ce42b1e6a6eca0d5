package pricing

import (
	"github.com/shopspring/decimal"
	"github.com/wornwell/storefront/internal/commerce"
)

// FreeLabel is shown on the shipping line when shipping costs nothing.
const FreeLabel = "Free"

// Config holds the shipping constants and display fallbacks.
// These are configured, not dynamically priced.
type Config struct {
	// FreeShippingThreshold is the subtotal at or above which shipping is free.
	FreeShippingThreshold decimal.Decimal

	// FlatShippingFee is charged below the threshold.
	FlatShippingFee decimal.Decimal

	// FallbackCurrency is used when the cart payload omits one.
	FallbackCurrency string
}

// DefaultConfig returns the storefront's standard shipping constants.
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.NewFromInt(1000),
		FlatShippingFee:       decimal.NewFromInt(50),
		FallbackCurrency:      "USD",
	}
}

// Totals is the derived price breakdown for display. Tax and discount are
// already folded into Total by the remote side; only shipping is added here.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Discount     decimal.Decimal `json:"discount"`
	Shipping     decimal.Decimal `json:"shipping"`
	GrandTotal   decimal.Decimal `json:"grandTotal"`
	Currency     string          `json:"currency"`
	FreeShipping bool            `json:"freeShipping"`
}

// Calculator derives totals from server-authoritative cart data plus the
// configured shipping constants. Pure derivation, no side effects.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a totals calculator. Zero-valued config fields fall
// back to DefaultConfig.
func NewCalculator(cfg Config) *Calculator {
	defaults := DefaultConfig()
	if cfg.FreeShippingThreshold.IsZero() {
		cfg.FreeShippingThreshold = defaults.FreeShippingThreshold
	}
	if cfg.FlatShippingFee.IsZero() {
		cfg.FlatShippingFee = defaults.FlatShippingFee
	}
	if cfg.FallbackCurrency == "" {
		cfg.FallbackCurrency = defaults.FallbackCurrency
	}
	return &Calculator{cfg: cfg}
}

// ShippingCost returns the shipping charge for a subtotal: zero at or above
// the free-shipping threshold, the flat fee below it.
func (c *Calculator) ShippingCost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(c.cfg.FreeShippingThreshold) {
		return decimal.Zero
	}
	return c.cfg.FlatShippingFee
}

// Totals computes the display breakdown for a cart. The client never
// recomputes subtotal, tax or discount; those are taken as-is from the
// server payload.
func (c *Calculator) Totals(cart *commerce.Cart) Totals {
	shipping := c.ShippingCost(cart.Subtotal)

	currency := cart.Currency
	if currency == "" {
		currency = c.cfg.FallbackCurrency
	}

	return Totals{
		Subtotal:     cart.Subtotal,
		Tax:          cart.TaxAmount,
		Discount:     cart.DiscountAmount,
		Shipping:     shipping,
		GrandTotal:   cart.Total.Add(shipping),
		Currency:     currency,
		FreeShipping: shipping.IsZero(),
	}
}

// Format renders a monetary amount with exactly two decimal places.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ShippingLabel renders the shipping line: "Free" when it costs nothing,
// otherwise the formatted amount.
func ShippingLabel(t Totals) string {
	if t.FreeShipping {
		return FreeLabel
	}
	return Format(t.Shipping)
}
