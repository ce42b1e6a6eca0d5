package order

import (
	"context"
	"log/slog"

	"github.com/wornwell/storefront/internal/commerce"
)

// User-facing messages for the validation flow.
const (
	MsgOrderConfirmed   = "Your order has been placed successfully"
	MsgOrderFailed      = "We could not confirm your order. Please try again or contact support."
	MsgMissingReference = "Missing payment reference"
)

// Validation is the result of confirming an order after the payment
// redirect. Exactly two outcomes exist; there is no ambiguous state.
type Validation struct {
	Outcome Outcome               `json:"outcome"`
	Message string                `json:"message"`
	Order   *commerce.OrderResult `json:"order,omitempty"`
}

// Validator runs the order-confirmation flow: one call to the remote
// validate endpoint, classified into success or failure. A retry is simply
// another Validate call, triggered manually by the shopper.
type Validator struct {
	client commerce.Client
	logger *slog.Logger
}

// NewValidator creates an order validator.
func NewValidator(client commerce.Client, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{client: client, logger: logger}
}

// Validate confirms the order behind a payment reference. Remote errors and
// unrecognized statuses both resolve to a failed outcome with a
// human-readable message; the flow never hangs or leaves the result open.
func (v *Validator) Validate(ctx context.Context, paymentReference string) Validation {
	if paymentReference == "" {
		return Validation{Outcome: OutcomeFailed, Message: MsgMissingReference}
	}

	result, err := v.client.ValidateOrder(ctx, paymentReference)
	if err != nil {
		v.logger.Warn("order validation failed", "payment_reference", paymentReference, "error", err)
		msg := commerce.ErrorMessage(err)
		if msg == "" {
			msg = MsgOrderFailed
		}
		return Validation{Outcome: OutcomeFailed, Message: msg}
	}

	if Classify(result.Status) == OutcomeSuccess {
		return Validation{Outcome: OutcomeSuccess, Message: MsgOrderConfirmed, Order: result}
	}

	v.logger.Info("order status not confirmable", "payment_reference", paymentReference, "status", result.Status)
	return Validation{Outcome: OutcomeFailed, Message: MsgOrderFailed, Order: result}
}
