package commerce_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wornwell/storefront/internal/commerce"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *commerce.HTTPClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := commerce.NewHTTPClient(commerce.HTTPConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	})
	require.NoError(t, err)
	return client
}

func TestHTTPClient_GetCart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"items": [
					{"id": "a", "productId": "p1", "quantity": 2, "unitPrice": "10", "totalPrice": "20", "currency": "USD"}
				],
				"subtotal": "20",
				"total": "21.50",
				"taxAmount": "1.50",
				"discountAmount": "0",
				"currency": "USD"
			}
		}`))
	})

	cart, err := client.GetCart(context.Background())

	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "a", cart.Items[0].ID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.True(t, cart.Subtotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, cart.Total.Equal(decimal.RequireFromString("21.50")))
	assert.Equal(t, "USD", cart.Currency)
}

func TestHTTPClient_UpdateCartItem(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/cart/items/a", r.URL.Path)

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 5, body["quantity"])

		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {"id": "a", "productId": "p1", "quantity": 5, "unitPrice": "10", "totalPrice": "50", "currency": "USD"}
		}`))
	})

	line, err := client.UpdateCartItem(context.Background(), "a", 5)

	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)
	assert.True(t, line.TotalPrice.Equal(decimal.NewFromInt(50)))
}

func TestHTTPClient_UpdateCartItem_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success": false, "message": "Item no longer in cart"}`))
	})

	_, err := client.UpdateCartItem(context.Background(), "gone", 3)

	require.Error(t, err)
	assert.True(t, errors.Is(err, commerce.ErrItemNotFound))
	assert.Equal(t, "Item no longer in cart", commerce.ErrorMessage(err))
}

func TestHTTPClient_ApplicationFailureWithoutMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success": false}`))
	})

	err := client.ClearCart(context.Background())

	require.Error(t, err)
	assert.Empty(t, commerce.ErrorMessage(err), "no remote message to surface")
	assert.True(t, commerce.IsTransient(err))
}

func TestHTTPClient_SuccessFalseOn200(t *testing.T) {
	// Some commerce endpoints report application failures with HTTP 200.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "message": "Cart is locked"}`))
	})

	_, err := client.GetCart(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Cart is locked", commerce.ErrorMessage(err))
	assert.False(t, commerce.IsTransient(err))
}

func TestHTTPClient_SessionTokenForwarded(t *testing.T) {
	var gotToken string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Session-Token")
		_, _ = w.Write([]byte(`{"success": true, "data": {"items": [], "currency": "USD"}}`))
	})

	_, err := client.WithSession("sess-123").GetCart(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "sess-123", gotToken)
}

func TestHTTPClient_SessionExpired(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success": false, "message": "Session expired"}`))
	})

	_, err := client.ListAddresses(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, commerce.ErrSessionExpired))
}

func TestHTTPClient_PlaceOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		var payload commerce.OrderPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "ship-1", payload.ShippingAddressID)
		assert.Equal(t, "bill-1", payload.BillingAddressID)
		assert.False(t, payload.CreateAccount)

		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {"id": "order-9", "paymentReference": "pay-9", "approvalUrl": "https://pay.example.com/9"}
		}`))
	})

	placed, err := client.PlaceOrder(context.Background(), commerce.OrderPayload{
		ShippingAddressID: "ship-1",
		BillingAddressID:  "bill-1",
		PaymentMethod:     "hosted",
		ReturnURL:         "https://shop.example.com/order-confirmation",
	})

	require.NoError(t, err)
	assert.Equal(t, "pay-9", placed.PaymentReference)
	assert.Equal(t, "https://pay.example.com/9", placed.ApprovalURL)
}

func TestHTTPClient_ValidateOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/validate/pay-9", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {"paymentReference": "pay-9", "status": "CONFIRMED", "items": [], "totalAmount": "120.00", "currency": "USD"}
		}`))
	})

	result, err := client.ValidateOrder(context.Background(), "pay-9")

	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", result.Status)
	assert.True(t, result.TotalAmount.Equal(decimal.RequireFromString("120.00")))
}

func TestNewHTTPClient_RequiresBaseURL(t *testing.T) {
	_, err := commerce.NewHTTPClient(commerce.HTTPConfig{})
	assert.Error(t, err)
}

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name     string
		payload  commerce.AddressPayload
		expected string
	}{
		{
			name: "all fields",
			payload: commerce.AddressPayload{
				AddressLine1: "99 Crosby St",
				AddressLine2: "Unit 4",
				City:         "New York",
				State:        "NY",
				PostalCode:   "10012",
				Country:      "US",
			},
			expected: "99 Crosby St, Unit 4, New York, NY, 10012, US",
		},
		{
			name: "empty fields skipped",
			payload: commerce.AddressPayload{
				AddressLine1: "99 Crosby St",
				City:         "New York",
				PostalCode:   "10012",
				Country:      "US",
			},
			expected: "99 Crosby St, New York, 10012, US",
		},
		{
			name:     "empty payload",
			payload:  commerce.AddressPayload{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, commerce.FormatAddress(tt.payload))
		})
	}
}

type recordingMetrics struct {
	mu   sync.Mutex
	ops  []string
	errs []error
}

func (m *recordingMetrics) ObserveRequest(op string, elapsed time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	m.errs = append(m.errs, err)
}

func TestHTTPClient_MetricsObserveEveryCall(t *testing.T) {
	srv := httptest.NewServer(func() http.HandlerFunc {
		calls := 0
		return func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"success": true, "data": {"items": [], "currency": "USD"}}`))
				return
			}
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"success": false, "message": "upstream down"}`))
		}
	}())
	t.Cleanup(srv.Close)

	metrics := &recordingMetrics{}
	client, err := commerce.NewHTTPClient(commerce.HTTPConfig{
		BaseURL: srv.URL,
		Metrics: metrics,
	})
	require.NoError(t, err)

	_, err = client.GetCart(context.Background())
	require.NoError(t, err)
	err = client.ClearCart(context.Background())
	require.Error(t, err)

	require.Len(t, metrics.ops, 2)
	assert.Equal(t, "commerce.get_cart", metrics.ops[0])
	assert.NoError(t, metrics.errs[0])
	assert.Equal(t, "commerce.clear_cart", metrics.ops[1])
	assert.Error(t, metrics.errs[1])
}

func TestHTTPClient_MetricsCarriedBySessionClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	t.Cleanup(srv.Close)

	metrics := &recordingMetrics{}
	base, err := commerce.NewHTTPClient(commerce.HTTPConfig{
		BaseURL: srv.URL,
		Metrics: metrics,
	})
	require.NoError(t, err)

	require.NoError(t, base.WithSession("tok").ClearCart(context.Background()))
	require.Len(t, metrics.ops, 1)
}
