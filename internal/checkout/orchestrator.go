package checkout

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/domain"
	"github.com/wornwell/storefront/internal/notify"
)

// State is the order placement lifecycle. Redirecting is terminal for a
// session; Failed flows straight back to Idle so the shopper may retry.
type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateSubmitting  State = "submitting"
	StateRedirecting State = "redirecting"
	StateFailed      State = "failed"
)

const (
	// PaymentMethod is the only payment method the storefront offers.
	// The shopper approves payment on the provider's hosted page.
	PaymentMethod = "hosted_checkout"

	MsgOrderPlaceFailed = "Could not place your order. Please try again."
)

// PlacementResult reports one PlaceOrder attempt.
type PlacementResult struct {
	// State is the terminal state of the attempt: Redirecting on success,
	// Failed otherwise. A re-entrant call while another attempt is in
	// flight reports Submitting and does nothing.
	State            State
	RedirectURL      string
	PaymentReference string
	Err              error
}

// Orchestrator drives order placement: validate the address selection,
// submit the order, and hand back the approval redirect. At most one
// attempt runs at a time per session.
type Orchestrator struct {
	client    commerce.Client
	notifier  notify.Notifier
	logger    *slog.Logger
	returnURL string

	mu    sync.Mutex
	state State
}

func NewOrchestrator(client commerce.Client, notifier notify.Notifier, logger *slog.Logger, returnURL string) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:    client,
		notifier:  notifier,
		logger:    logger,
		returnURL: returnURL,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// PlaceOrder runs one placement attempt against the current selection.
//
// The selection gate runs first; on a gate failure no network call is made
// and the slot-specific message is surfaced. While a submit is in flight,
// further calls are ignored. On success the orchestrator parks in
// Redirecting and the result carries the approval URL; on failure it
// returns to Idle so the shopper can retry.
func (o *Orchestrator) PlaceOrder(ctx context.Context, sel *Selection) PlacementResult {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return PlacementResult{State: StateSubmitting}
	}

	o.state = StateValidating
	if err := sel.Validate(); err != nil {
		o.state = StateIdle
		o.mu.Unlock()
		o.notifier.Notify(notify.Error(domain.ErrorMessage(err)))
		return PlacementResult{State: StateFailed, Err: err}
	}

	payload := commerce.OrderPayload{
		ShippingAddressID: sel.ShippingID(),
		BillingAddressID:  sel.ResolvedBillingID(),
		PaymentMethod:     PaymentMethod,
		ReturnURL:         o.returnURL,
		CreateAccount:     false,
	}
	o.state = StateSubmitting
	o.mu.Unlock()

	placed, err := o.client.PlaceOrder(ctx, payload)
	if err != nil {
		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()

		msg := commerce.ErrorMessage(err)
		if msg == "" {
			msg = MsgOrderPlaceFailed
		}
		o.logger.Error("order placement failed",
			slog.String("shipping_address_id", payload.ShippingAddressID),
			slog.String("error", err.Error()))
		o.notifier.Notify(notify.Error(msg))
		return PlacementResult{
			State: StateFailed,
			Err:   domain.WrapError(err, domain.EUNAVAILABLE, "checkout.place_order", msg),
		}
	}

	o.mu.Lock()
	o.state = StateRedirecting
	o.mu.Unlock()

	o.logger.Info("order placed",
		slog.String("order_id", placed.ID),
		slog.String("payment_reference", placed.PaymentReference))

	return PlacementResult{
		State:            StateRedirecting,
		RedirectURL:      o.redirectURL(placed),
		PaymentReference: placed.PaymentReference,
	}
}

// Reset returns the orchestrator to Idle. Called when the shopper comes
// back from the payment provider without completing, so a new attempt is
// possible.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
}

// redirectURL picks where to send the shopper next. Normally that is the
// provider's approval page; an order that needs no payment approval goes
// straight to the local confirmation page.
func (o *Orchestrator) redirectURL(placed *commerce.PlacedOrder) string {
	if placed.ApprovalURL != "" {
		return placed.ApprovalURL
	}
	return o.returnURL + "?ref=" + placed.PaymentReference
}
