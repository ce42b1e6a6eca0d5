package checkout_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wornwell/storefront/internal/checkout"
	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/domain"
)

func TestSelection_ShippingPropagatesWhileCoupled(t *testing.T) {
	sel := checkout.NewSelection()
	require.True(t, sel.SameAsShipping())

	sel.SelectShipping("addr_1")
	assert.Equal(t, "addr_1", sel.ShippingID())
	assert.Equal(t, "addr_1", sel.BillingID())

	sel.SelectShipping("addr_2")
	assert.Equal(t, "addr_2", sel.BillingID())
}

func TestSelection_BillingRejectedWhileCoupled(t *testing.T) {
	sel := checkout.NewSelection()
	sel.SelectShipping("addr_1")

	err := sel.SelectBilling("addr_2")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Equal(t, "addr_1", sel.BillingID())
}

func TestSelection_UncheckRestoresIndependentBilling(t *testing.T) {
	sel := checkout.NewSelection()
	sel.SelectShipping("addr_1")

	sel.SetSameAsShipping(false)
	assert.Empty(t, sel.BillingID(), "no prior independent choice to restore")

	require.NoError(t, sel.SelectBilling("addr_2"))

	// Re-coupling mirrors shipping again.
	sel.SetSameAsShipping(true)
	assert.Equal(t, "addr_1", sel.BillingID())

	// Unchecking brings back the independent choice.
	sel.SetSameAsShipping(false)
	assert.Equal(t, "addr_2", sel.BillingID())
}

func TestSelection_BillingNeverPropagatesToShipping(t *testing.T) {
	sel := checkout.NewSelection()
	sel.SelectShipping("addr_1")
	sel.SetSameAsShipping(false)

	require.NoError(t, sel.SelectBilling("addr_2"))
	assert.Equal(t, "addr_1", sel.ShippingID())
}

func TestSelection_ApplyDefaultRunsOnce(t *testing.T) {
	addresses := []commerce.Address{
		{ID: "addr_1"},
		{ID: "addr_2", IsDefault: true},
	}

	sel := checkout.NewSelection()
	sel.ApplyDefault(addresses)
	assert.Equal(t, "addr_2", sel.ShippingID())
	assert.Equal(t, "addr_2", sel.BillingID())

	// A later deselection must stick even when the list is reloaded.
	sel.ClearAddress("addr_2")
	sel.ApplyDefault(addresses)
	assert.Empty(t, sel.ShippingID())
}

func TestSelection_ApplyDefaultNoDefaultAddress(t *testing.T) {
	sel := checkout.NewSelection()
	sel.ApplyDefault([]commerce.Address{{ID: "addr_1"}, {ID: "addr_2"}})
	assert.Empty(t, sel.ShippingID())
}

func TestSelection_ApplyDefaultSkipsWhenAlreadySelected(t *testing.T) {
	sel := checkout.NewSelection()
	sel.SelectShipping("addr_1")

	sel.ApplyDefault([]commerce.Address{{ID: "addr_2", IsDefault: true}})
	assert.Equal(t, "addr_1", sel.ShippingID())
}

func TestSelection_ClearAddress(t *testing.T) {
	sel := checkout.NewSelection()
	sel.SelectShipping("addr_1")
	sel.SetSameAsShipping(false)
	require.NoError(t, sel.SelectBilling("addr_2"))

	sel.ClearAddress("addr_2")
	assert.Equal(t, "addr_1", sel.ShippingID())
	assert.Empty(t, sel.BillingID())

	sel.ClearAddress("addr_1")
	assert.Empty(t, sel.ShippingID())
}

func TestSelection_Validate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*checkout.Selection)
		wantMsg string
	}{
		{
			name:    "nothing selected",
			setup:   func(s *checkout.Selection) {},
			wantMsg: checkout.MsgMissingShipping,
		},
		{
			name: "shipping only, coupled",
			setup: func(s *checkout.Selection) {
				s.SelectShipping("addr_1")
			},
			wantMsg: "",
		},
		{
			name: "shipping only, decoupled",
			setup: func(s *checkout.Selection) {
				s.SelectShipping("addr_1")
				s.SetSameAsShipping(false)
			},
			wantMsg: checkout.MsgMissingBilling,
		},
		{
			name: "both selected, decoupled",
			setup: func(s *checkout.Selection) {
				s.SelectShipping("addr_1")
				s.SetSameAsShipping(false)
				_ = s.SelectBilling("addr_2")
			},
			wantMsg: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := checkout.NewSelection()
			tt.setup(sel)

			err := sel.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, domain.ErrorMessage(err))
		})
	}
}

func TestSelection_ConcurrentMutationAndEncoding(t *testing.T) {
	sel := checkout.NewSelection()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			sel.SelectShipping("addr_1")
			sel.SetSameAsShipping(false)
			sel.SetSameAsShipping(true)
			sel.ClearAddress("addr_1")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := json.Marshal(sel)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()
}

func TestSelection_JSONRoundTrip(t *testing.T) {
	sel := checkout.NewSelection()
	sel.SelectShipping("addr_1")
	sel.SetSameAsShipping(false)
	require.NoError(t, sel.SelectBilling("addr_2"))

	data, err := json.Marshal(sel)
	require.NoError(t, err)

	var restored checkout.Selection
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, "addr_1", restored.ShippingID())
	assert.Equal(t, "addr_2", restored.BillingID())
	assert.False(t, restored.SameAsShipping())

	// The independent choice survives the round trip.
	restored.SetSameAsShipping(true)
	restored.SetSameAsShipping(false)
	assert.Equal(t, "addr_2", restored.BillingID())
}

func TestSelection_ResolvedBillingID(t *testing.T) {
	sel := checkout.NewSelection()
	sel.SelectShipping("addr_1")
	assert.Equal(t, "addr_1", sel.ResolvedBillingID())

	sel.SetSameAsShipping(false)
	require.NoError(t, sel.SelectBilling("addr_2"))
	assert.Equal(t, "addr_2", sel.ResolvedBillingID())
}
