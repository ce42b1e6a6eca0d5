package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wornwell/storefront/internal/checkout"
	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/notify"
)

const testReturnURL = "https://shop.wornwell.com/order/confirmation"

func newTestOrchestrator() (*checkout.Orchestrator, *commerce.MockClient, *notify.Recorder) {
	client := commerce.NewMockClient()
	recorder := notify.NewRecorder()
	o := checkout.NewOrchestrator(client, recorder, nil, testReturnURL)
	return o, client, recorder
}

func selectedSelection() *checkout.Selection {
	sel := checkout.NewSelection()
	sel.SelectShipping("addr_1")
	return sel
}

func TestOrchestrator_PlaceOrderSuccess(t *testing.T) {
	o, client, _ := newTestOrchestrator()
	client.PlaceOrderFunc = func(ctx context.Context, payload commerce.OrderPayload) (*commerce.PlacedOrder, error) {
		assert.Equal(t, "addr_1", payload.ShippingAddressID)
		assert.Equal(t, "addr_1", payload.BillingAddressID)
		assert.Equal(t, checkout.PaymentMethod, payload.PaymentMethod)
		assert.Equal(t, testReturnURL, payload.ReturnURL)
		assert.False(t, payload.CreateAccount)
		return &commerce.PlacedOrder{
			ID:               "order_1",
			PaymentReference: "pay_abc",
			ApprovalURL:      "https://pay.example.com/approve/pay_abc",
		}, nil
	}

	res := o.PlaceOrder(context.Background(), selectedSelection())
	assert.Equal(t, checkout.StateRedirecting, res.State)
	assert.Equal(t, "https://pay.example.com/approve/pay_abc", res.RedirectURL)
	assert.Equal(t, "pay_abc", res.PaymentReference)
	assert.Equal(t, checkout.StateRedirecting, o.State())
}

func TestOrchestrator_MissingShippingBlocksNetwork(t *testing.T) {
	o, client, recorder := newTestOrchestrator()

	res := o.PlaceOrder(context.Background(), checkout.NewSelection())
	assert.Equal(t, checkout.StateFailed, res.State)
	assert.Empty(t, client.Calls(), "validation failure must not place an order")
	assert.Equal(t, checkout.StateIdle, o.State())

	notes := recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, checkout.MsgMissingShipping, notes[0].Message)
}

func TestOrchestrator_MissingBillingBlocksNetwork(t *testing.T) {
	o, client, recorder := newTestOrchestrator()
	sel := selectedSelection()
	sel.SetSameAsShipping(false)

	res := o.PlaceOrder(context.Background(), sel)
	assert.Equal(t, checkout.StateFailed, res.State)
	assert.Empty(t, client.Calls())

	notes := recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, checkout.MsgMissingBilling, notes[0].Message)
}

func TestOrchestrator_SeparateBillingCarriedOnPayload(t *testing.T) {
	o, client, _ := newTestOrchestrator()
	var got commerce.OrderPayload
	client.PlaceOrderFunc = func(ctx context.Context, payload commerce.OrderPayload) (*commerce.PlacedOrder, error) {
		got = payload
		return &commerce.PlacedOrder{PaymentReference: "pay_1", ApprovalURL: "https://pay.example.com/1"}, nil
	}

	sel := selectedSelection()
	sel.SetSameAsShipping(false)
	require.NoError(t, sel.SelectBilling("addr_2"))

	o.PlaceOrder(context.Background(), sel)
	assert.Equal(t, "addr_1", got.ShippingAddressID)
	assert.Equal(t, "addr_2", got.BillingAddressID)
}

func TestOrchestrator_FailureReturnsToIdleForRetry(t *testing.T) {
	o, client, recorder := newTestOrchestrator()
	client.PlaceOrderFunc = func(ctx context.Context, payload commerce.OrderPayload) (*commerce.PlacedOrder, error) {
		return nil, &commerce.APIError{StatusCode: 409, Message: "Insufficient stock for item"}
	}

	res := o.PlaceOrder(context.Background(), selectedSelection())
	assert.Equal(t, checkout.StateFailed, res.State)
	require.Error(t, res.Err)
	assert.Equal(t, checkout.StateIdle, o.State())

	notes := recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Insufficient stock for item", notes[0].Message)

	// Retry succeeds once the remote recovers.
	client.PlaceOrderFunc = nil
	res = o.PlaceOrder(context.Background(), selectedSelection())
	assert.Equal(t, checkout.StateRedirecting, res.State)
}

func TestOrchestrator_FailureWithoutMessageUsesFallback(t *testing.T) {
	o, client, recorder := newTestOrchestrator()
	client.PlaceOrderFunc = func(ctx context.Context, payload commerce.OrderPayload) (*commerce.PlacedOrder, error) {
		return nil, &commerce.APIError{StatusCode: 500}
	}

	o.PlaceOrder(context.Background(), selectedSelection())
	notes := recorder.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, checkout.MsgOrderPlaceFailed, notes[0].Message)
}

func TestOrchestrator_ReentrantCallIgnoredWhileSubmitting(t *testing.T) {
	o, client, _ := newTestOrchestrator()

	release := make(chan struct{})
	started := make(chan struct{})
	client.PlaceOrderFunc = func(ctx context.Context, payload commerce.OrderPayload) (*commerce.PlacedOrder, error) {
		close(started)
		<-release
		return &commerce.PlacedOrder{PaymentReference: "pay_1", ApprovalURL: "https://pay.example.com/1"}, nil
	}

	done := make(chan checkout.PlacementResult, 1)
	go func() {
		done <- o.PlaceOrder(context.Background(), selectedSelection())
	}()
	<-started

	// A second click while the first attempt is in flight does nothing.
	res := o.PlaceOrder(context.Background(), selectedSelection())
	assert.Equal(t, checkout.StateSubmitting, res.State)

	close(release)
	select {
	case first := <-done:
		assert.Equal(t, checkout.StateRedirecting, first.State)
	case <-time.After(time.Second):
		t.Fatal("first attempt did not finish")
	}

	calls := 0
	for _, c := range client.Calls() {
		if len(c) >= 10 && c[:10] == "PlaceOrder" {
			calls++
		}
	}
	assert.Equal(t, 1, calls)
}

func TestOrchestrator_NoApprovalURLRedirectsToConfirmation(t *testing.T) {
	o, client, _ := newTestOrchestrator()
	client.PlaceOrderFunc = func(ctx context.Context, payload commerce.OrderPayload) (*commerce.PlacedOrder, error) {
		return &commerce.PlacedOrder{ID: "order_1", PaymentReference: "pay_free"}, nil
	}

	res := o.PlaceOrder(context.Background(), selectedSelection())
	assert.Equal(t, checkout.StateRedirecting, res.State)
	assert.Equal(t, testReturnURL+"?ref=pay_free", res.RedirectURL)
}

func TestOrchestrator_ResetAllowsNewAttempt(t *testing.T) {
	o, _, _ := newTestOrchestrator()

	res := o.PlaceOrder(context.Background(), selectedSelection())
	require.Equal(t, checkout.StateRedirecting, res.State)

	o.Reset()
	assert.Equal(t, checkout.StateIdle, o.State())

	res = o.PlaceOrder(context.Background(), selectedSelection())
	assert.Equal(t, checkout.StateRedirecting, res.State)
}
