package storefront

import (
	"net/http"

	"github.com/wornwell/storefront/internal/checkout"
	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/domain"
	"github.com/wornwell/storefront/internal/middleware"
	"github.com/wornwell/storefront/internal/pricing"
	"github.com/wornwell/storefront/internal/session"
	"github.com/wornwell/storefront/internal/telemetry"
)

// CheckoutHandler drives the checkout page: address selection and order
// placement.
type CheckoutHandler struct {
	manager *session.Manager
	calc    *pricing.Calculator
	metrics *telemetry.BusinessMetrics
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(manager *session.Manager, calc *pricing.Calculator, metrics *telemetry.BusinessMetrics) *CheckoutHandler {
	return &CheckoutHandler{manager: manager, calc: calc, metrics: metrics}
}

// checkoutResponse is the checkout page payload: the address book, the
// current selection and the order summary.
type checkoutResponse struct {
	Addresses     []commerce.Address  `json:"addresses"`
	Selection     *checkout.Selection `json:"selection"`
	Subtotal      string              `json:"subtotal"`
	ShippingLabel string              `json:"shippingLabel"`
	GrandTotal    string              `json:"grandTotal"`
	Currency      string              `json:"currency"`
	State         checkout.State      `json:"state"`
}

// View handles GET /checkout
func (h *CheckoutHandler) View(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}
	ctx := r.Context()

	addresses, err := sess.AddressBook.List(ctx, sess.Selection)
	if err != nil {
		respondError(w, r, err)
		return
	}

	cartData, err := sess.Cart.Load(ctx)
	if err != nil {
		respondError(w, r, domain.Unavailable(err, "checkout.view", "Unable to load your cart"))
		return
	}

	h.metrics.CheckoutStarted.Inc()
	h.persist(r, sess)

	totals := h.calc.Totals(cartData)
	respondJSON(w, r, http.StatusOK, checkoutResponse{
		Addresses:     addresses,
		Selection:     sess.Selection,
		Subtotal:      pricing.Format(totals.Subtotal),
		ShippingLabel: pricing.ShippingLabel(totals),
		GrandTotal:    pricing.Format(totals.GrandTotal),
		Currency:      totals.Currency,
		State:         sess.Checkout.State(),
	})
}

// SelectShipping handles POST /checkout/shipping-address
func (h *CheckoutHandler) SelectShipping(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	var body struct {
		AddressID string `json:"addressId"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, err)
		return
	}
	if body.AddressID == "" {
		respondError(w, r, domain.Invalid("checkout.select_shipping", "Missing address id"))
		return
	}

	sess.Selection.SelectShipping(body.AddressID)
	h.persist(r, sess)
	respondJSON(w, r, http.StatusOK, sess.Selection)
}

// SelectBilling handles POST /checkout/billing-address
func (h *CheckoutHandler) SelectBilling(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	var body struct {
		AddressID string `json:"addressId"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	if err := sess.Selection.SelectBilling(body.AddressID); err != nil {
		respondError(w, r, err)
		return
	}
	h.persist(r, sess)
	respondJSON(w, r, http.StatusOK, sess.Selection)
}

// SameAsShipping handles POST /checkout/same-as-shipping
func (h *CheckoutHandler) SameAsShipping(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	var body struct {
		Same bool `json:"same"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	sess.Selection.SetSameAsShipping(body.Same)
	h.persist(r, sess)
	respondJSON(w, r, http.StatusOK, sess.Selection)
}

// placeOrderResponse reports one placement attempt to the frontend.
type placeOrderResponse struct {
	State            checkout.State `json:"state"`
	RedirectURL      string         `json:"redirectUrl,omitempty"`
	PaymentReference string         `json:"paymentReference,omitempty"`
}

// PlaceOrder handles POST /checkout/place-order
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	telemetry.AddBreadcrumb("checkout", "order placement attempted", map[string]interface{}{
		"session_id": sess.ID,
	})
	result := sess.Checkout.PlaceOrder(r.Context(), sess.Selection)

	switch result.State {
	case checkout.StateRedirecting:
		h.metrics.OrdersPlaced.Inc()
		respondJSON(w, r, http.StatusOK, placeOrderResponse{
			State:            result.State,
			RedirectURL:      result.RedirectURL,
			PaymentReference: result.PaymentReference,
		})
	case checkout.StateSubmitting:
		// Another attempt is already in flight; nothing was done.
		respondJSON(w, r, http.StatusAccepted, placeOrderResponse{State: result.State})
	default:
		if domain.IsCode(result.Err, domain.EINVALID) {
			h.metrics.CheckoutBlocked.WithLabelValues(blockReason(result.Err)).Inc()
		} else {
			h.metrics.OrderPlaceFailed.Inc()
		}
		respondError(w, r, result.Err)
	}
}

func blockReason(err error) string {
	if domain.ErrorMessage(err) == checkout.MsgMissingBilling {
		return "missing_billing"
	}
	return "missing_shipping"
}

// persist writes the durable session state back to the store. A failed
// write is logged, not surfaced; the in-memory session is still correct
// for this process.
func (h *CheckoutHandler) persist(r *http.Request, sess *session.Session) {
	if err := h.manager.Persist(r.Context(), sess); err != nil {
		middleware.GetLogger(r.Context()).Error("persist session failed",
			"session_id", sess.ID, "error", err)
	}
}
