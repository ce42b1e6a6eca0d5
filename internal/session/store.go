package session

import (
	"context"
	"errors"
	"time"

	"github.com/wornwell/storefront/internal/checkout"
)

// ErrNotFound is returned when a session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// DefaultTTL is how long an idle session survives before the store drops
// it. Matches the remote commerce API's own session lifetime.
const DefaultTTL = 24 * time.Hour

// State is the durable part of a shopper session: the remote API session
// token and the checkout selection. Live objects (the cart reconciler, the
// order orchestrator) are rebuilt from this on attach.
type State struct {
	Token     string              `json:"token"`
	Selection *checkout.Selection `json:"selection"`
	CreatedAt time.Time           `json:"createdAt"`
}

// copy returns a detached snapshot. Stores keep copies, never the live
// selection, so a stored state only changes through Put.
func (s State) copy() State {
	out := s
	if s.Selection != nil {
		out.Selection = s.Selection.Clone()
	}
	return out
}

// Store persists session state across requests. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get loads a session's state. Returns ErrNotFound for unknown or
	// expired ids.
	Get(ctx context.Context, id string) (*State, error)

	// Put saves a session's state, refreshing its TTL.
	Put(ctx context.Context, id string, state *State) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error
}
