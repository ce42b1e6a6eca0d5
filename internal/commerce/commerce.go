package commerce

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Client defines the interface to the remote commerce API.
// The remote side is the single source of truth for carts, addresses and
// orders; everything this service holds locally is an optimistic,
// reconcilable shadow of it.
type Client interface {
	// GetCart fetches the current cart for the session.
	GetCart(ctx context.Context) (*Cart, error)

	// UpdateCartItem changes a line item's quantity. The remote echoes the
	// updated line back.
	UpdateCartItem(ctx context.Context, itemID string, quantity int) (*CartLine, error)

	// RemoveCartItem removes a line from the cart.
	RemoveCartItem(ctx context.Context, itemID string) error

	// ClearCart empties the cart.
	ClearCart(ctx context.Context) error

	// ListAddresses fetches the shopper's saved addresses.
	ListAddresses(ctx context.Context) ([]Address, error)

	// CreateAddress adds a new address and returns it with its assigned ID.
	CreateAddress(ctx context.Context, payload AddressPayload) (*Address, error)

	// UpdateAddress edits an existing address.
	UpdateAddress(ctx context.Context, addressID string, payload AddressPayload) error

	// DeleteAddress removes an address.
	DeleteAddress(ctx context.Context, addressID string) error

	// SetDefaultAddress promotes an address to the shopper's default.
	// The remote side unsets any prior default.
	SetDefaultAddress(ctx context.Context, addressID string) error

	// PlaceOrder submits the order and returns the payment approval details.
	PlaceOrder(ctx context.Context, payload OrderPayload) (*PlacedOrder, error)

	// ValidateOrder confirms the order/payment outcome for a payment
	// reference after the shopper returns from the payment provider.
	ValidateOrder(ctx context.Context, paymentReference string) (*OrderResult, error)
}

// CartLine is one purchasable unit in the cart.
// TotalPrice is server-authoritative (unit price times quantity).
type CartLine struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	VariantID  string          `json:"variantId,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Currency   string          `json:"currency"`
}

// Cart aggregates the shopper's cart lines with server-computed totals.
// Subtotal equals the sum of line totals; tax and discounts are already
// folded into Total by the remote side.
type Cart struct {
	Items          []CartLine      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Currency       string          `json:"currency"`
}

// Line returns the cart line with the given id, or nil.
func (c *Cart) Line(itemID string) *CartLine {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

// Address is a saved shipping/billing destination.
type Address struct {
	ID               string `json:"id"`
	FullName         string `json:"fullName"`
	Company          string `json:"company,omitempty"`
	AddressLine1     string `json:"addressLine1"`
	AddressLine2     string `json:"addressLine2,omitempty"`
	City             string `json:"city"`
	State            string `json:"state,omitempty"`
	PostalCode       string `json:"postalCode"`
	Country          string `json:"country"`
	Phone            string `json:"phone,omitempty"`
	IsDefault        bool   `json:"isDefault"`
	FormattedAddress string `json:"formattedAddress,omitempty"`
}

// AddressPayload is the request body for creating or editing an address.
// FormattedAddress is derived client-side before submission.
type AddressPayload struct {
	FullName         string `json:"fullName" validate:"required"`
	Company          string `json:"company,omitempty"`
	AddressLine1     string `json:"addressLine1" validate:"required"`
	AddressLine2     string `json:"addressLine2,omitempty"`
	City             string `json:"city" validate:"required"`
	State            string `json:"state,omitempty"`
	PostalCode       string `json:"postalCode" validate:"required"`
	Country          string `json:"country" validate:"required,iso3166_1_alpha2"`
	Phone            string `json:"phone,omitempty"`
	IsDefault        bool   `json:"isDefault"`
	FormattedAddress string `json:"formattedAddress,omitempty"`
}

// FormatAddress builds the single-line display form of an address payload
// by joining its non-empty line fields with ", ".
func FormatAddress(p AddressPayload) string {
	parts := make([]string, 0, 6)
	for _, field := range []string{
		p.AddressLine1,
		p.AddressLine2,
		p.City,
		p.State,
		p.PostalCode,
		p.Country,
	} {
		if field != "" {
			parts = append(parts, field)
		}
	}
	return strings.Join(parts, ", ")
}

// OrderPayload is the request body for order placement.
type OrderPayload struct {
	ShippingAddressID string `json:"shippingAddressId"`
	BillingAddressID  string `json:"billingAddressId"`
	PaymentMethod     string `json:"paymentMethod"`
	ReturnURL         string `json:"returnUrl"`
	CreateAccount     bool   `json:"createAccount"`
}

// PlacedOrder is the successful response to order placement. ApprovalURL,
// when present, is where the shopper must be redirected to approve payment.
type PlacedOrder struct {
	ID               string `json:"id"`
	PaymentReference string `json:"paymentReference"`
	ApprovalURL      string `json:"approvalUrl,omitempty"`
}

// OrderResultItem is one purchased line on a validated order.
type OrderResultItem struct {
	ProductID  string          `json:"productId"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// OrderResult is the remote's answer to order validation by payment
// reference. Status is classified by the order package.
type OrderResult struct {
	PaymentReference string            `json:"paymentReference"`
	Status           string            `json:"status"`
	Items            []OrderResultItem `json:"items"`
	TotalAmount      decimal.Decimal   `json:"totalAmount"`
	Currency         string            `json:"currency"`
}
