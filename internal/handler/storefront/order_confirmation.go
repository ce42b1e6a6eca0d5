package storefront

import (
	"net/http"

	"github.com/wornwell/storefront/internal/order"
	"github.com/wornwell/storefront/internal/pricing"
	"github.com/wornwell/storefront/internal/telemetry"
)

// OrderConfirmationHandler validates the order after the shopper returns
// from the payment provider.
type OrderConfirmationHandler struct {
	metrics *telemetry.BusinessMetrics
}

// NewOrderConfirmationHandler creates a new order confirmation handler
func NewOrderConfirmationHandler(metrics *telemetry.BusinessMetrics) *OrderConfirmationHandler {
	return &OrderConfirmationHandler{metrics: metrics}
}

type confirmationItem struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unitPrice"`
	TotalPrice string `json:"totalPrice"`
}

type confirmationResponse struct {
	Outcome          order.Outcome      `json:"outcome"`
	Message          string             `json:"message"`
	PaymentReference string             `json:"paymentReference,omitempty"`
	Items            []confirmationItem `json:"items,omitempty"`
	TotalAmount      string             `json:"totalAmount,omitempty"`
	Currency         string             `json:"currency,omitempty"`
}

// View handles GET /order-confirmation?ref=...
//
// The page is safe to reload: validation is a read against the commerce
// API, never a second placement.
func (h *OrderConfirmationHandler) View(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	result := sess.Orders.Validate(r.Context(), r.URL.Query().Get("ref"))

	resp := confirmationResponse{
		Outcome: result.Outcome,
		Message: result.Message,
	}

	if result.Outcome == order.OutcomeSuccess {
		h.metrics.OrdersConfirmed.Inc()
		h.metrics.OrderValue.Observe(result.Order.TotalAmount.InexactFloat64())
		resp.PaymentReference = result.Order.PaymentReference
		resp.TotalAmount = pricing.Format(result.Order.TotalAmount)
		resp.Currency = result.Order.Currency
		for _, item := range result.Order.Items {
			resp.Items = append(resp.Items, confirmationItem{
				ProductID:  item.ProductID,
				Name:       item.Name,
				Quantity:   item.Quantity,
				UnitPrice:  pricing.Format(item.UnitPrice),
				TotalPrice: pricing.Format(item.TotalPrice),
			})
		}

	} else {
		h.metrics.OrdersUnconfirmed.Inc()
	}

	// The shopper is done with this checkout attempt either way; a failed
	// validation sends them back to checkout to retry.
	sess.Checkout.Reset()

	respondJSON(w, r, http.StatusOK, resp)
}
