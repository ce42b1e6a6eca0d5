package storefront

import (
	"net/http"

	"github.com/wornwell/storefront/internal/cart"
	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/domain"
	"github.com/wornwell/storefront/internal/pricing"
	"github.com/wornwell/storefront/internal/telemetry"
)

// CartHandler handles all cart-related storefront routes
type CartHandler struct {
	calc    *pricing.Calculator
	metrics *telemetry.BusinessMetrics
}

// NewCartHandler creates a new cart handler
func NewCartHandler(calc *pricing.Calculator, metrics *telemetry.BusinessMetrics) *CartHandler {
	return &CartHandler{calc: calc, metrics: metrics}
}

// cartItem is one cart line joined with its local edit state.
type cartItem struct {
	ID         string `json:"id"`
	ProductID  string `json:"productId"`
	VariantID  string `json:"variantId,omitempty"`
	UnitPrice  string `json:"unitPrice"`
	TotalPrice string `json:"totalPrice"`
	Draft      string `json:"draft"`
	Displayed  int    `json:"displayed"`
	InFlight   bool   `json:"inFlight"`
	Pending    bool   `json:"pending"`
}

// cartResponse is the full cart page payload.
type cartResponse struct {
	Items         []cartItem `json:"items"`
	Subtotal      string     `json:"subtotal"`
	TaxAmount     string     `json:"taxAmount"`
	Discount      string     `json:"discount"`
	ShippingLabel string     `json:"shippingLabel"`
	GrandTotal    string     `json:"grandTotal"`
	Currency      string     `json:"currency"`
}

// View handles GET /cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	cartData, err := sess.Cart.Load(r.Context())
	if err != nil {
		respondError(w, r, domain.Unavailable(err, "cart.view", "Unable to load your cart"))
		return
	}

	respondJSON(w, r, http.StatusOK, h.buildResponse(cartData, sess.Cart))
}

// UpdateQuantity handles POST /cart/items/{id}/quantity.
// The raw typed value goes into the line's draft; a valid quantity
// schedules a debounced remote update.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	itemID := r.PathValue("id")
	sess.Cart.SetDraft(itemID, body.Value)
	h.metrics.CartUpdates.WithLabelValues("typed").Inc()

	view, ok := sess.Cart.View(itemID)
	if !ok {
		respondError(w, r, domain.NotFound("cart.update_quantity", "cart item", itemID))
		return
	}
	respondJSON(w, r, http.StatusOK, view)
}

// Blur handles POST /cart/items/{id}/blur.
// Settles the field when focus leaves it.
func (h *CartHandler) Blur(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	itemID := r.PathValue("id")
	sess.Cart.Blur(itemID)

	view, ok := sess.Cart.View(itemID)
	if !ok {
		respondError(w, r, domain.NotFound("cart.blur", "cart item", itemID))
		return
	}
	respondJSON(w, r, http.StatusOK, view)
}

// Step handles POST /cart/items/{id}/step.
// A +/- button click commits immediately.
func (h *CartHandler) Step(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	var body struct {
		Delta int `json:"delta"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	itemID := r.PathValue("id")
	sess.Cart.Step(r.Context(), itemID, body.Delta)
	h.metrics.CartUpdates.WithLabelValues("stepper").Inc()

	h.respondWithCart(w, r, "cart.step")
}

// Remove handles POST /cart/items/{id}/remove
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	if err := sess.Cart.Remove(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, domain.WrapError(err, domain.EUNAVAILABLE, "cart.remove", cart.MsgItemRemoveFailed))
		return
	}
	h.metrics.CartItemsRemoved.Inc()

	h.respondWithCart(w, r, "cart.remove")
}

// Clear handles POST /cart/clear
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	if err := sess.Cart.Clear(r.Context()); err != nil {
		respondError(w, r, domain.WrapError(err, domain.EUNAVAILABLE, "cart.clear", cart.MsgCartClearFailed))
		return
	}
	h.metrics.CartCleared.Inc()

	h.respondWithCart(w, r, "cart.clear")
}

// respondWithCart reloads the authoritative cart so the response carries
// fresh totals after a mutation.
func (h *CartHandler) respondWithCart(w http.ResponseWriter, r *http.Request, op string) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	cartData, err := sess.Cart.Load(r.Context())
	if err != nil {
		respondError(w, r, domain.Unavailable(err, op, "Unable to load your cart"))
		return
	}
	respondJSON(w, r, http.StatusOK, h.buildResponse(cartData, sess.Cart))
}

func (h *CartHandler) buildResponse(cartData *commerce.Cart, rec *cart.Reconciler) cartResponse {
	totals := h.calc.Totals(cartData)

	items := make([]cartItem, 0, len(cartData.Items))
	for _, line := range cartData.Items {
		item := cartItem{
			ID:         line.ID,
			ProductID:  line.ProductID,
			VariantID:  line.VariantID,
			UnitPrice:  pricing.Format(line.UnitPrice),
			TotalPrice: pricing.Format(line.TotalPrice),
		}
		if view, ok := rec.View(line.ID); ok {
			item.Draft = view.Draft
			item.Displayed = view.Displayed
			item.InFlight = view.InFlight
			item.Pending = view.Pending
		}
		items = append(items, item)
	}

	return cartResponse{
		Items:         items,
		Subtotal:      pricing.Format(totals.Subtotal),
		TaxAmount:     pricing.Format(totals.Tax),
		Discount:      pricing.Format(totals.Discount),
		ShippingLabel: pricing.ShippingLabel(totals),
		GrandTotal:    pricing.Format(totals.GrandTotal),
		Currency:      totals.Currency,
	}
}
