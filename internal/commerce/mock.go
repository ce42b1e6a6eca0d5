package commerce

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockClient is an in-memory commerce client for tests.
// It keeps a scriptable cart and address book and records every call.
// Override individual *Func fields to simulate failures.
type MockClient struct {
	mu sync.Mutex

	// CartData is returned by GetCart and mutated by cart operations.
	CartData *Cart

	// Addresses backs the address operations.
	Addresses []Address

	// Orders maps payment references to validation results.
	Orders map[string]*OrderResult

	// Per-operation overrides.
	GetCartFunc        func(ctx context.Context) (*Cart, error)
	UpdateCartItemFunc func(ctx context.Context, itemID string, quantity int) (*CartLine, error)
	RemoveCartItemFunc func(ctx context.Context, itemID string) error
	ClearCartFunc      func(ctx context.Context) error
	CreateAddressFunc  func(ctx context.Context, payload AddressPayload) (*Address, error)
	UpdateAddressFunc  func(ctx context.Context, addressID string, payload AddressPayload) error
	DeleteAddressFunc  func(ctx context.Context, addressID string) error
	SetDefaultFunc     func(ctx context.Context, addressID string) error
	PlaceOrderFunc     func(ctx context.Context, payload OrderPayload) (*PlacedOrder, error)
	ValidateOrderFunc  func(ctx context.Context, paymentReference string) (*OrderResult, error)

	// CallLog tracks method calls for test assertions.
	CallLog []string
}

// NewMockClient creates a mock commerce client with an empty cart.
func NewMockClient() *MockClient {
	return &MockClient{
		CartData: &Cart{Currency: "USD"},
		Orders:   make(map[string]*OrderResult),
	}
}

func (m *MockClient) log(format string, args ...interface{}) {
	m.CallLog = append(m.CallLog, fmt.Sprintf(format, args...))
}

// Calls returns a snapshot of the call log.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.CallLog))
	copy(out, m.CallLog)
	return out
}

// GetCart returns the scripted cart.
func (m *MockClient) GetCart(ctx context.Context) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("GetCart()")

	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx)
	}
	cart := *m.CartData
	return &cart, nil
}

// UpdateCartItem updates the quantity on the scripted cart, recomputing the
// line total the way the remote would.
func (m *MockClient) UpdateCartItem(ctx context.Context, itemID string, quantity int) (*CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("UpdateCartItem(%s, %d)", itemID, quantity)

	if m.UpdateCartItemFunc != nil {
		return m.UpdateCartItemFunc(ctx, itemID, quantity)
	}

	line := m.CartData.Line(itemID)
	if line == nil {
		return nil, &APIError{StatusCode: 404, Op: "commerce.update_cart_item", Err: ErrItemNotFound}
	}
	line.Quantity = quantity
	line.TotalPrice = line.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	echoed := *line
	return &echoed, nil
}

// RemoveCartItem drops the line from the scripted cart.
func (m *MockClient) RemoveCartItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("RemoveCartItem(%s)", itemID)

	if m.RemoveCartItemFunc != nil {
		return m.RemoveCartItemFunc(ctx, itemID)
	}

	for i, item := range m.CartData.Items {
		if item.ID == itemID {
			m.CartData.Items = append(m.CartData.Items[:i], m.CartData.Items[i+1:]...)
			return nil
		}
	}
	return &APIError{StatusCode: 404, Op: "commerce.remove_cart_item", Err: ErrItemNotFound}
}

// ClearCart empties the scripted cart.
func (m *MockClient) ClearCart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("ClearCart()")

	if m.ClearCartFunc != nil {
		return m.ClearCartFunc(ctx)
	}
	m.CartData.Items = nil
	return nil
}

// ListAddresses returns the scripted address book.
func (m *MockClient) ListAddresses(ctx context.Context) ([]Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("ListAddresses()")

	out := make([]Address, len(m.Addresses))
	copy(out, m.Addresses)
	return out, nil
}

// CreateAddress appends to the scripted address book with a generated id.
func (m *MockClient) CreateAddress(ctx context.Context, payload AddressPayload) (*Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("CreateAddress(%s)", payload.FullName)

	if m.CreateAddressFunc != nil {
		return m.CreateAddressFunc(ctx, payload)
	}

	addr := Address{
		ID:               "addr_" + uuid.New().String(),
		FullName:         payload.FullName,
		Company:          payload.Company,
		AddressLine1:     payload.AddressLine1,
		AddressLine2:     payload.AddressLine2,
		City:             payload.City,
		State:            payload.State,
		PostalCode:       payload.PostalCode,
		Country:          payload.Country,
		Phone:            payload.Phone,
		FormattedAddress: payload.FormattedAddress,
	}
	m.Addresses = append(m.Addresses, addr)
	return &addr, nil
}

// UpdateAddress edits the scripted address book entry.
func (m *MockClient) UpdateAddress(ctx context.Context, addressID string, payload AddressPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("UpdateAddress(%s)", addressID)

	if m.UpdateAddressFunc != nil {
		return m.UpdateAddressFunc(ctx, addressID, payload)
	}

	for i := range m.Addresses {
		if m.Addresses[i].ID == addressID {
			m.Addresses[i].FullName = payload.FullName
			m.Addresses[i].Company = payload.Company
			m.Addresses[i].AddressLine1 = payload.AddressLine1
			m.Addresses[i].AddressLine2 = payload.AddressLine2
			m.Addresses[i].City = payload.City
			m.Addresses[i].State = payload.State
			m.Addresses[i].PostalCode = payload.PostalCode
			m.Addresses[i].Country = payload.Country
			m.Addresses[i].Phone = payload.Phone
			m.Addresses[i].FormattedAddress = payload.FormattedAddress
			return nil
		}
	}
	return &APIError{StatusCode: 404, Op: "commerce.update_address", Err: ErrAddressNotFound}
}

// DeleteAddress removes the scripted address book entry.
func (m *MockClient) DeleteAddress(ctx context.Context, addressID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("DeleteAddress(%s)", addressID)

	if m.DeleteAddressFunc != nil {
		return m.DeleteAddressFunc(ctx, addressID)
	}

	for i, addr := range m.Addresses {
		if addr.ID == addressID {
			m.Addresses = append(m.Addresses[:i], m.Addresses[i+1:]...)
			return nil
		}
	}
	return &APIError{StatusCode: 404, Op: "commerce.delete_address", Err: ErrAddressNotFound}
}

// SetDefaultAddress marks one entry default and unsets all others.
func (m *MockClient) SetDefaultAddress(ctx context.Context, addressID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("SetDefaultAddress(%s)", addressID)

	if m.SetDefaultFunc != nil {
		return m.SetDefaultFunc(ctx, addressID)
	}

	found := false
	for i := range m.Addresses {
		if m.Addresses[i].ID == addressID {
			found = true
		}
	}
	if !found {
		return &APIError{StatusCode: 404, Op: "commerce.set_default_address", Err: ErrAddressNotFound}
	}

	for i := range m.Addresses {
		m.Addresses[i].IsDefault = m.Addresses[i].ID == addressID
	}
	return nil
}

// PlaceOrder returns a scripted placed order.
func (m *MockClient) PlaceOrder(ctx context.Context, payload OrderPayload) (*PlacedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("PlaceOrder(%s, %s)", payload.ShippingAddressID, payload.BillingAddressID)

	if m.PlaceOrderFunc != nil {
		return m.PlaceOrderFunc(ctx, payload)
	}

	ref := "pay_" + uuid.New().String()
	return &PlacedOrder{
		ID:               "order_" + uuid.New().String(),
		PaymentReference: ref,
		ApprovalURL:      "https://pay.example.com/approve/" + ref,
	}, nil
}

// ValidateOrder looks up a scripted validation result.
func (m *MockClient) ValidateOrder(ctx context.Context, paymentReference string) (*OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log("ValidateOrder(%s)", paymentReference)

	if m.ValidateOrderFunc != nil {
		return m.ValidateOrderFunc(ctx, paymentReference)
	}

	result, ok := m.Orders[paymentReference]
	if !ok {
		return nil, &APIError{StatusCode: 404, Op: "commerce.validate_order", Err: ErrOrderNotFound}
	}
	return result, nil
}
