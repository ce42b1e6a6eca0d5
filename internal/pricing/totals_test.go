package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/pricing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculator_ShippingCost_Threshold(t *testing.T) {
	calc := pricing.NewCalculator(pricing.Config{
		FreeShippingThreshold: decimal.NewFromInt(1000),
		FlatShippingFee:       decimal.NewFromInt(50),
	})

	tests := []struct {
		name     string
		subtotal string
		expected string
	}{
		{"just below threshold", "999.99", "50"},
		{"exactly at threshold", "1000.00", "0"},
		{"above threshold", "1500", "0"},
		{"empty cart", "0", "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.ShippingCost(dec(tt.subtotal))
			assert.True(t, got.Equal(dec(tt.expected)),
				"ShippingCost(%s) = %s, want %s", tt.subtotal, got, tt.expected)
		})
	}
}

func TestCalculator_Totals_AddsOnlyShipping(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())

	cart := &commerce.Cart{
		Subtotal:       dec("240.00"),
		Total:          dec("252.40"), // tax and discount already folded in
		TaxAmount:      dec("18.40"),
		DiscountAmount: dec("6.00"),
		Currency:       "USD",
	}

	totals := calc.Totals(cart)

	assert.True(t, totals.Shipping.Equal(dec("50")))
	assert.True(t, totals.GrandTotal.Equal(dec("302.40")), "grand total = cart total + shipping")
	assert.True(t, totals.Tax.Equal(dec("18.40")), "tax passes through untouched")
	assert.True(t, totals.Discount.Equal(dec("6.00")), "discount passes through untouched")
	assert.False(t, totals.FreeShipping)
}

func TestCalculator_Totals_FreeShipping(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())

	cart := &commerce.Cart{
		Subtotal: dec("1200.00"),
		Total:    dec("1290.00"),
		Currency: "EUR",
	}

	totals := calc.Totals(cart)

	assert.True(t, totals.Shipping.IsZero())
	assert.True(t, totals.GrandTotal.Equal(dec("1290.00")))
	assert.True(t, totals.FreeShipping)
	assert.Equal(t, "EUR", totals.Currency)
	assert.Equal(t, pricing.FreeLabel, pricing.ShippingLabel(totals))
}

func TestCalculator_Totals_CurrencyFallback(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())

	totals := calc.Totals(&commerce.Cart{Subtotal: dec("10"), Total: dec("10")})

	assert.Equal(t, "USD", totals.Currency)
}

func TestFormat_TwoDecimalPlaces(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"50", "50.00"},
		{"19.9", "19.90"},
		{"0", "0.00"},
		{"1234.567", "1234.57"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, pricing.Format(dec(tt.in)))
	}
}

func TestShippingLabel_PaidShipping(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())

	totals := calc.Totals(&commerce.Cart{Subtotal: dec("100"), Total: dec("100"), Currency: "USD"})

	assert.Equal(t, "50.00", pricing.ShippingLabel(totals))
}
