package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 30 * time.Second

// Metrics observes every remote API call. Implementations must be safe
// for concurrent use; a nil Metrics disables observation.
type Metrics interface {
	ObserveRequest(op string, elapsed time.Duration, err error)
}

// HTTPConfig holds configuration for the commerce API client.
type HTTPConfig struct {
	// BaseURL is the root of the commerce API (e.g., "https://api.wornwell.com/v1").
	BaseURL string

	// APIKey authenticates this storefront against the commerce API.
	APIKey string

	// Timeout bounds each request. Defaults to 30s when zero.
	Timeout time.Duration

	// Metrics receives per-call latency and outcome. Optional.
	Metrics Metrics
}

// HTTPClient implements Client over the commerce JSON API.
// A base client is created once at startup; WithSession derives a
// per-shopper client that forwards the shopper's session token.
type HTTPClient struct {
	baseURL      string
	apiKey       string
	sessionToken string
	httpClient   *http.Client
	metrics      Metrics
}

// NewHTTPClient creates a commerce API client.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("commerce: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("commerce: invalid base URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &HTTPClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    cfg.Metrics,
	}, nil
}

// WithSession returns a copy of the client scoped to a shopper's session.
// The derived client shares the underlying transport.
func (c *HTTPClient) WithSession(token string) *HTTPClient {
	derived := *c
	derived.sessionToken = token
	return &derived
}

// envelope is the commerce API's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// GetCart fetches the current cart for the session.
func (c *HTTPClient) GetCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &cart, "commerce.get_cart"); err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateCartItem changes a line item's quantity.
func (c *HTTPClient) UpdateCartItem(ctx context.Context, itemID string, quantity int) (*CartLine, error) {
	body := map[string]int{"quantity": quantity}
	var line CartLine
	err := c.do(ctx, http.MethodPut, "/cart/items/"+url.PathEscape(itemID), body, &line, "commerce.update_cart_item")
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// RemoveCartItem removes a line from the cart.
func (c *HTTPClient) RemoveCartItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(itemID), nil, nil, "commerce.remove_cart_item")
}

// ClearCart empties the cart.
func (c *HTTPClient) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart", nil, nil, "commerce.clear_cart")
}

// ListAddresses fetches the shopper's saved addresses.
func (c *HTTPClient) ListAddresses(ctx context.Context) ([]Address, error) {
	var addresses []Address
	if err := c.do(ctx, http.MethodGet, "/addresses", nil, &addresses, "commerce.list_addresses"); err != nil {
		return nil, err
	}
	return addresses, nil
}

// CreateAddress adds a new address.
func (c *HTTPClient) CreateAddress(ctx context.Context, payload AddressPayload) (*Address, error) {
	var addr Address
	if err := c.do(ctx, http.MethodPost, "/addresses", payload, &addr, "commerce.create_address"); err != nil {
		return nil, err
	}
	return &addr, nil
}

// UpdateAddress edits an existing address.
func (c *HTTPClient) UpdateAddress(ctx context.Context, addressID string, payload AddressPayload) error {
	return c.do(ctx, http.MethodPut, "/addresses/"+url.PathEscape(addressID), payload, nil, "commerce.update_address")
}

// DeleteAddress removes an address.
func (c *HTTPClient) DeleteAddress(ctx context.Context, addressID string) error {
	return c.do(ctx, http.MethodDelete, "/addresses/"+url.PathEscape(addressID), nil, nil, "commerce.delete_address")
}

// SetDefaultAddress promotes an address to the shopper's default.
func (c *HTTPClient) SetDefaultAddress(ctx context.Context, addressID string) error {
	return c.do(ctx, http.MethodPost, "/addresses/"+url.PathEscape(addressID)+"/default", nil, nil, "commerce.set_default_address")
}

// PlaceOrder submits the order.
func (c *HTTPClient) PlaceOrder(ctx context.Context, payload OrderPayload) (*PlacedOrder, error) {
	var placed PlacedOrder
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &placed, "commerce.place_order"); err != nil {
		return nil, err
	}
	return &placed, nil
}

// ValidateOrder confirms the order outcome for a payment reference.
func (c *HTTPClient) ValidateOrder(ctx context.Context, paymentReference string) (*OrderResult, error) {
	var result OrderResult
	path := "/orders/validate/" + url.PathEscape(paymentReference)
	if err := c.do(ctx, http.MethodGet, path, nil, &result, "commerce.validate_order"); err != nil {
		return nil, err
	}
	return &result, nil
}

// do performs one API request, recording its latency and outcome.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}, op string) error {
	start := time.Now()
	err := c.roundTrip(ctx, method, path, body, out, op)
	if c.metrics != nil {
		c.metrics.ObserveRequest(op, time.Since(start), err)
	}
	return err
}

// roundTrip sends the request and decodes the response envelope into out.
// Application failures (success=false or non-2xx) become *APIError carrying
// the remote's message when it provides one.
func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, body, out interface{}, op string) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.sessionToken != "" {
		req.Header.Set("X-Session-Token", c.sessionToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Op: op, Err: err}
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			return &APIError{
				StatusCode: resp.StatusCode,
				Op:         op,
				Err:        fmt.Errorf("failed to parse response: %w", err),
			}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: env.Message, Op: op}
		switch resp.StatusCode {
		case http.StatusNotFound:
			apiErr.Err = notFoundSentinel(path)
		case http.StatusUnauthorized:
			apiErr.Err = ErrSessionExpired
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s: failed to decode response data: %w", op, err)
		}
	}

	return nil
}

// notFoundSentinel maps a 404 to the sentinel matching the resource kind so
// callers can use errors.Is without inspecting paths themselves.
func notFoundSentinel(path string) error {
	switch {
	case len(path) >= 11 && path[:11] == "/cart/items":
		return ErrItemNotFound
	case len(path) >= 10 && path[:10] == "/addresses":
		return ErrAddressNotFound
	case len(path) >= 7 && path[:7] == "/orders":
		return ErrOrderNotFound
	}
	return nil
}
