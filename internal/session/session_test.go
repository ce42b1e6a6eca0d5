package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wornwell/storefront/internal/checkout"
	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/session"
)

func newTestManager(store session.Store) (*session.Manager, *commerce.MockClient) {
	client := commerce.NewMockClient()
	factory := func(token string) commerce.Client { return client }
	m := session.NewManager(store, factory, nil, session.Config{
		Debounce:  10 * time.Millisecond,
		ReturnURL: "https://shop.wornwell.com/order/confirmation",
	})
	return m, client
}

func TestManager_CreateAndAttach(t *testing.T) {
	store := session.NewMemoryStore(0)
	m, _ := newTestManager(store)

	sess, err := m.Create(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.NotNil(t, sess.Cart)
	require.NotNil(t, sess.Selection)
	require.NotNil(t, sess.Checkout)

	// Same process returns the same live session.
	again, err := m.Attach(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, again)
}

func TestManager_AttachUnknownID(t *testing.T) {
	m, _ := newTestManager(session.NewMemoryStore(0))

	_, err := m.Attach(context.Background(), "nope")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestManager_SelectionSurvivesRebuild(t *testing.T) {
	store := session.NewMemoryStore(0)
	m, _ := newTestManager(store)

	sess, err := m.Create(context.Background())
	require.NoError(t, err)

	sess.Selection.SelectShipping("addr_1")
	require.NoError(t, m.Persist(context.Background(), sess))

	// A second manager simulates another replica reading the shared store.
	m2, _ := newTestManager(store)
	rebuilt, err := m2.Attach(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "addr_1", rebuilt.Selection.ShippingID())
	assert.True(t, rebuilt.Selection.SameAsShipping())
}

func TestManager_ReleaseRemovesSession(t *testing.T) {
	store := session.NewMemoryStore(0)
	m, _ := newTestManager(store)

	sess, err := m.Create(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Release(context.Background(), sess.ID))
	_, err = m.Attach(context.Background(), sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := session.NewMemoryStore(20 * time.Millisecond)

	state := &session.State{Token: "tok", CreatedAt: time.Now()}
	require.NoError(t, store.Put(context.Background(), "s1", state))

	got, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)

	time.Sleep(40 * time.Millisecond)
	_, err = store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore_PutSnapshotsSelection(t *testing.T) {
	store := session.NewMemoryStore(0)

	sel := checkout.NewSelection()
	sel.SelectShipping("addr_1")
	state := &session.State{Token: "tok", Selection: sel}
	require.NoError(t, store.Put(context.Background(), "s1", state))

	// Mutating the live selection must not change the stored snapshot.
	sel.SelectShipping("addr_2")

	got, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "addr_1", got.Selection.ShippingID())

	// And mutating what Get returned must not reach the store either.
	got.Selection.SelectShipping("addr_3")
	again, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "addr_1", again.Selection.ShippingID())
}

func TestMemoryStore_PutRefreshesTTL(t *testing.T) {
	store := session.NewMemoryStore(50 * time.Millisecond)
	state := &session.State{Token: "tok"}

	require.NoError(t, store.Put(context.Background(), "s1", state))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, store.Put(context.Background(), "s1", state))
	time.Sleep(30 * time.Millisecond)

	_, err := store.Get(context.Background(), "s1")
	assert.NoError(t, err, "second Put should have refreshed the TTL")
}
