package routes

import (
	"github.com/wornwell/storefront/internal/handler/storefront"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	// Cart
	CartHandler *storefront.CartHandler

	// Checkout
	CheckoutHandler *storefront.CheckoutHandler

	// Address book
	AddressHandler *storefront.AddressHandler

	// Post-payment confirmation
	OrderConfirmationHandler *storefront.OrderConfirmationHandler
}
