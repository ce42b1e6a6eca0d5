package routes

import (
	"github.com/wornwell/storefront/internal/router"
)

// RegisterStorefrontRoutes registers all shopper-facing routes. The caller
// wires the session middleware onto the router (or a group) before calling
// this; every route here assumes a resolved session.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	// Shopping cart
	r.Get("/cart", deps.CartHandler.View)
	r.Post("/cart/items/{id}/quantity", deps.CartHandler.UpdateQuantity)
	r.Post("/cart/items/{id}/blur", deps.CartHandler.Blur)
	r.Post("/cart/items/{id}/step", deps.CartHandler.Step)
	r.Post("/cart/items/{id}/remove", deps.CartHandler.Remove)
	r.Post("/cart/clear", deps.CartHandler.Clear)

	// Checkout flow
	r.Get("/checkout", deps.CheckoutHandler.View)
	r.Post("/checkout/shipping-address", deps.CheckoutHandler.SelectShipping)
	r.Post("/checkout/billing-address", deps.CheckoutHandler.SelectBilling)
	r.Post("/checkout/same-as-shipping", deps.CheckoutHandler.SameAsShipping)
	r.Post("/checkout/place-order", deps.CheckoutHandler.PlaceOrder)

	// Address book
	r.Get("/account/addresses", deps.AddressHandler.List)
	r.Post("/account/addresses", deps.AddressHandler.Create)
	r.Post("/account/addresses/{id}", deps.AddressHandler.Update)
	r.Post("/account/addresses/{id}/delete", deps.AddressHandler.Delete)
	r.Post("/account/addresses/{id}/default", deps.AddressHandler.SetDefault)

	// Post-payment confirmation
	r.Get("/order-confirmation", deps.OrderConfirmationHandler.View)
}
