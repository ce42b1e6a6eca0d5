// Package session ties one shopper's browser session to its live
// storefront machinery. The durable part (remote API token, checkout
// selection) lives in a Store; the runtime part (cart reconciler, order
// orchestrator, pending notifications) is rebuilt on first use and kept in
// process memory until the session is released.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wornwell/storefront/internal/cart"
	"github.com/wornwell/storefront/internal/checkout"
	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/notify"
	"github.com/wornwell/storefront/internal/order"
)

// ClientFactory builds a commerce client bound to a remote session token.
type ClientFactory func(token string) commerce.Client

// Config carries the per-session tunables.
type Config struct {
	// Debounce is the cart quantity debounce window.
	Debounce time.Duration

	// ReturnURL is where the payment provider sends the shopper back.
	ReturnURL string

	// CartMetrics receives every session reconciler's counters. Optional.
	CartMetrics cart.Metrics
}

// Session is one shopper's live storefront state.
type Session struct {
	ID    string
	Token string

	Cart          *cart.Reconciler
	Selection     *checkout.Selection
	AddressBook   *checkout.AddressBook
	Checkout      *checkout.Orchestrator
	Orders        *order.Validator
	Notifications *notify.Recorder

	CreatedAt time.Time
}

// state snapshots the durable part for persistence.
func (s *Session) state() *State {
	return &State{
		Token:     s.Token,
		Selection: s.Selection,
		CreatedAt: s.CreatedAt,
	}
}

// Close tears down the session's runtime machinery. Pending cart commits
// are cancelled.
func (s *Session) Close() {
	s.Cart.Close()
}

// Manager creates, attaches and releases sessions. Live sessions are
// cached per process; the store is the source of truth between requests
// and across replicas.
type Manager struct {
	store   Store
	factory ClientFactory
	logger  *slog.Logger
	cfg     Config

	mu   sync.Mutex
	live map[string]*Session
}

func NewManager(store Store, factory ClientFactory, logger *slog.Logger, cfg Config) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:   store,
		factory: factory,
		logger:  logger,
		cfg:     cfg,
		live:    make(map[string]*Session),
	}
}

// Create starts a fresh session with a new id and persists it.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.New().String()
	state := &State{
		Selection: checkout.NewSelection(),
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Put(ctx, id, state); err != nil {
		return nil, err
	}

	sess := m.build(id, state)
	m.mu.Lock()
	m.live[id] = sess
	m.mu.Unlock()

	m.logger.Info("session created", slog.String("session_id", id))
	return sess, nil
}

// Attach returns the live session for id, rebuilding it from the store if
// this process has not seen it yet. Returns ErrNotFound when the id is
// unknown or expired.
func (m *Manager) Attach(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	if sess, ok := m.live[id]; ok {
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	state, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sess := m.build(id, state)

	m.mu.Lock()
	// Another request may have rebuilt it concurrently; keep the first.
	if existing, ok := m.live[id]; ok {
		m.mu.Unlock()
		sess.Close()
		return existing, nil
	}
	m.live[id] = sess
	m.mu.Unlock()

	return sess, nil
}

// Persist writes the session's durable state back to the store. Called
// after any request that may have changed the selection or token.
func (m *Manager) Persist(ctx context.Context, sess *Session) error {
	return m.store.Put(ctx, sess.ID, sess.state())
}

// Release closes a session's runtime state and removes it from the store.
func (m *Manager) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.live[id]
	delete(m.live, id)
	m.mu.Unlock()

	if ok {
		sess.Close()
	}
	return m.store.Delete(ctx, id)
}

// CloseAll tears down every live session. Called on shutdown; durable
// state stays in the store.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.live))
	for _, sess := range m.live {
		sessions = append(sessions, sess)
	}
	m.live = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

func (m *Manager) build(id string, state *State) *Session {
	client := m.factory(state.Token)
	recorder := notify.NewRecorder()

	selection := state.Selection
	if selection == nil {
		selection = checkout.NewSelection()
	}

	logger := m.logger.With(slog.String("session_id", id))
	return &Session{
		ID:            id,
		Token:         state.Token,
		Cart:          cart.NewReconciler(client, recorder, logger, cart.Config{Debounce: m.cfg.Debounce, Metrics: m.cfg.CartMetrics}),
		Selection:     selection,
		AddressBook:   checkout.NewAddressBook(client, recorder, logger),
		Checkout:      checkout.NewOrchestrator(client, recorder, logger, m.cfg.ReturnURL),
		Orders:        order.NewValidator(client, logger),
		Notifications: recorder,
		CreatedAt:     state.CreatedAt,
	}
}
