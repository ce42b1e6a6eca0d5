package checkout

import (
	"encoding/json"
	"sync"

	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/domain"
)

// User-facing messages for the checkout validation gate. Each missing slot
// produces its own distinct error.
const (
	MsgMissingShipping = "Please select a shipping address"
	MsgMissingBilling  = "Please select a billing address"
	MsgBillingFollows  = "Billing address follows the shipping address"
)

// Selection is the ephemeral two-slot address choice for one checkout
// session. It is client-side state only, never persisted remotely.
//
// While same-as-shipping is on the billing slot is a one-way mirror of the
// shipping slot: shipping selections propagate to billing, never the
// reverse. Unchecking restores the last independently chosen billing
// address, or leaves billing empty when there was none.
//
// One Selection is shared by every request on a session, so all access
// goes through the lock, including JSON encoding.
type Selection struct {
	mu sync.RWMutex

	shippingID     string
	billingID      string
	sameAsShipping bool

	// independentBillingID remembers the billing choice made while the
	// slots were decoupled, so unchecking same-as-shipping can restore it.
	independentBillingID string

	// defaultApplied guards the one-time default-address promotion.
	defaultApplied bool
}

// NewSelection creates a fresh checkout selection. Billing starts coupled
// to shipping, matching the storefront's default checkbox state.
func NewSelection() *Selection {
	return &Selection{sameAsShipping: true}
}

// ShippingID returns the selected shipping address id, or "".
func (s *Selection) ShippingID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shippingID
}

// BillingID returns the billing slot's current value, mirrored or not.
func (s *Selection) BillingID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.billingID
}

// SameAsShipping reports whether the billing slot follows shipping.
func (s *Selection) SameAsShipping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sameAsShipping
}

// ApplyDefault promotes the server-flagged default address to the shipping
// slot. It runs at most once per session and only while nothing is
// selected yet, so a deliberate deselection later is never overridden.
func (s *Selection) ApplyDefault(addresses []commerce.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defaultApplied || s.shippingID != "" {
		return
	}
	s.defaultApplied = true

	for _, addr := range addresses {
		if addr.IsDefault {
			s.selectShipping(addr.ID)
			return
		}
	}
}

// SelectShipping sets the shipping slot. While same-as-shipping is on the
// billing slot follows automatically.
func (s *Selection) SelectShipping(addressID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectShipping(addressID)
}

func (s *Selection) selectShipping(addressID string) {
	s.shippingID = addressID
	if s.sameAsShipping {
		s.billingID = addressID
	}
}

// SelectBilling sets the billing slot independently. It is rejected while
// same-as-shipping is on, because the billing slot is derived state then.
func (s *Selection) SelectBilling(addressID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sameAsShipping {
		return domain.Invalid("checkout.select_billing", MsgBillingFollows)
	}
	s.billingID = addressID
	s.independentBillingID = addressID
	return nil
}

// SetSameAsShipping couples or decouples the billing slot. Coupling mirrors
// the current shipping selection; decoupling restores the last independent
// billing choice, which may be empty.
func (s *Selection) SetSameAsShipping(same bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if same == s.sameAsShipping {
		return
	}

	s.sameAsShipping = same
	if same {
		s.billingID = s.shippingID
		return
	}
	s.billingID = s.independentBillingID
}

// ClearAddress drops any slot that points at the given address. Used after
// a delete so the session never keeps a dangling reference; the shopper
// must re-select.
func (s *Selection) ClearAddress(addressID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shippingID == addressID {
		s.shippingID = ""
		if s.sameAsShipping {
			s.billingID = ""
		}
	}
	if s.billingID == addressID {
		s.billingID = ""
	}
	if s.independentBillingID == addressID {
		s.independentBillingID = ""
	}
}

// Validate is the pre-placement gate. Shipping must be selected; when the
// slots are decoupled, billing must be independently selected too. Each
// failure carries its own message and no network call is made on failure.
func (s *Selection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.shippingID == "" {
		return domain.Invalid("checkout.validate", MsgMissingShipping)
	}
	if !s.sameAsShipping && s.billingID == "" {
		return domain.Invalid("checkout.validate", MsgMissingBilling)
	}
	return nil
}

// ResolvedBillingID returns the billing address the order will carry,
// applying the same-as-shipping rule.
func (s *Selection) ResolvedBillingID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sameAsShipping {
		return s.shippingID
	}
	return s.billingID
}

// Clone returns an independent copy. Stores persist clones so a stored
// snapshot never changes when the live selection does.
func (s *Selection) Clone() *Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Selection{
		shippingID:           s.shippingID,
		billingID:            s.billingID,
		sameAsShipping:       s.sameAsShipping,
		independentBillingID: s.independentBillingID,
		defaultApplied:       s.defaultApplied,
	}
}

// selectionState is the wire form shared by API responses and the session
// store.
type selectionState struct {
	ShippingAddressID    string `json:"shippingAddressId"`
	BillingAddressID     string `json:"billingAddressId"`
	SameAsShipping       bool   `json:"sameAsShipping"`
	IndependentBillingID string `json:"independentBillingId,omitempty"`
	DefaultApplied       bool   `json:"defaultApplied,omitempty"`
}

// MarshalJSON encodes the selection under its read lock, so encoding a
// response or persisting the session never races a concurrent mutation.
func (s *Selection) MarshalJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return json.Marshal(selectionState{
		ShippingAddressID:    s.shippingID,
		BillingAddressID:     s.billingID,
		SameAsShipping:       s.sameAsShipping,
		IndependentBillingID: s.independentBillingID,
		DefaultApplied:       s.defaultApplied,
	})
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var state selectionState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shippingID = state.ShippingAddressID
	s.billingID = state.BillingAddressID
	s.sameAsShipping = state.SameAsShipping
	s.independentBillingID = state.IndependentBillingID
	s.defaultApplied = state.DefaultApplied
	return nil
}
