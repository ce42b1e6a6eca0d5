package cart

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/notify"
)

// DefaultDebounce is how long a typed quantity edit may sit before it is
// committed remotely. Discrete +/- steps skip the debounce entirely.
const DefaultDebounce = 800 * time.Millisecond

// User-facing messages for quantity reconciliation outcomes.
const (
	MsgQuantityUpdated      = "Cart updated"
	MsgQuantityUpdateFailed = "Could not update quantity. Please try again."
	MsgItemRemoved          = "Item removed from cart"
	MsgItemRemoveFailed     = "Could not remove item. Please try again."
	MsgCartCleared          = "Cart cleared"
	MsgCartClearFailed      = "Could not clear the cart. Please try again."
)

// Input sources for quantity commits.
const (
	SourceTyped   = "typed"
	SourceStepper = "stepper"
)

// Metrics counts reconciliation outcomes. Implementations must be safe for
// concurrent use; a nil Metrics disables counting.
type Metrics interface {
	// QuantityCommitFailed counts a commit the commerce API rejected,
	// labelled by input source.
	QuantityCommitFailed(source string)

	// DebounceSuperseded counts a scheduled commit cancelled before it
	// fired, because a newer edit replaced it.
	DebounceSuperseded()
}

// Config holds reconciler settings.
type Config struct {
	// Debounce delays remote writes for typed edits. Defaults to
	// DefaultDebounce when zero.
	Debounce time.Duration

	// Metrics receives reconciliation counters. Optional.
	Metrics Metrics
}

// lineState tracks one cart line's optimistic edit state.
type lineState struct {
	draft     string      // raw editable text, digits only
	committed int         // last quantity confirmed by the server
	timer     *time.Timer // pending debounce, nil when none
	inflight  bool        // an update request is outstanding
}

// Reconciler keeps per-line local quantity edits consistent with the remote
// cart: typed edits are debounced, step adjustments commit immediately, at
// most one update per line is ever in flight, and failures roll the display
// back to the last server-confirmed value.
//
// One Reconciler belongs to one shopper session. Close cancels all pending
// debounce timers; it must be called on session teardown.
type Reconciler struct {
	client   commerce.Client
	notifier notify.Notifier
	logger   *slog.Logger
	debounce time.Duration
	metrics  Metrics

	mu     sync.Mutex
	lines  map[string]*lineState
	closed bool
}

// NewReconciler creates a reconciler for one session's cart.
func NewReconciler(client commerce.Client, notifier notify.Notifier, logger *slog.Logger, cfg Config) *Reconciler {
	debounce := cfg.Debounce
	if debounce == 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		client:   client,
		notifier: notifier,
		logger:   logger,
		debounce: debounce,
		metrics:  cfg.Metrics,
		lines:    make(map[string]*lineState),
	}
}

// Load fetches the authoritative cart and seeds local line state from it.
// Lines that disappeared remotely are dropped; new lines start with their
// server quantity as both draft and committed value.
func (r *Reconciler) Load(ctx context.Context) (*commerce.Cart, error) {
	cart, err := r.client.GetCart(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(cart.Items))
	for _, item := range cart.Items {
		seen[item.ID] = true
		if state, ok := r.lines[item.ID]; ok {
			state.committed = item.Quantity
			continue
		}
		r.lines[item.ID] = &lineState{
			draft:     strconv.Itoa(item.Quantity),
			committed: item.Quantity,
		}
	}
	for id, state := range r.lines {
		if !seen[id] {
			cancelTimer(state)
			delete(r.lines, id)
		}
	}

	return cart, nil
}

// SetDraft records a typed quantity edit. Non-digit characters are stripped
// before storing. A valid value (integer >= 1) reschedules the line's
// debounced remote update; an invalid one is kept on display so the user
// can keep typing, and nothing is scheduled.
func (r *Reconciler) SetDraft(itemID, raw string) {
	cleaned := stripNonDigits(raw)

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.lines[itemID]
	if !ok || r.closed {
		return
	}

	state.draft = cleaned

	qty, valid := parseQuantity(cleaned)
	if !valid {
		// Leave any already-scheduled commit alone; it carries the last
		// valid value typed.
		return
	}

	r.supersede(state)
	state.timer = time.AfterFunc(r.debounce, func() {
		r.commit(context.Background(), itemID, qty, SourceTyped)
	})
}

// Blur settles the field when focus leaves it: an invalid draft is reset to
// the last server-confirmed quantity so the field never persists an invalid
// state.
func (r *Reconciler) Blur(itemID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.lines[itemID]
	if !ok {
		return
	}

	if _, valid := parseQuantity(state.draft); !valid {
		state.draft = strconv.Itoa(state.committed)
	}
}

// Step applies a +/- button adjustment. The new quantity floors at 1, the
// display updates immediately, any pending debounce is cancelled, and the
// remote update is issued right away: a discrete click is a deliberate,
// low-frequency action unlike keystroke streams.
func (r *Reconciler) Step(ctx context.Context, itemID string, delta int) {
	r.mu.Lock()

	state, ok := r.lines[itemID]
	if !ok || r.closed {
		r.mu.Unlock()
		return
	}

	current, valid := parseQuantity(state.draft)
	if !valid {
		current = state.committed
	}

	newQty := current + delta
	if newQty < 1 {
		newQty = 1
	}

	state.draft = strconv.Itoa(newQty)
	r.supersede(state)
	r.mu.Unlock()

	r.commit(ctx, itemID, newQty, SourceStepper)
}

// Remove deletes a line. The line's local state is dropped first, so a
// response from any in-flight quantity update for it is ignored.
func (r *Reconciler) Remove(ctx context.Context, itemID string) error {
	r.mu.Lock()
	if state, ok := r.lines[itemID]; ok {
		cancelTimer(state)
		delete(r.lines, itemID)
	}
	r.mu.Unlock()

	if err := r.client.RemoveCartItem(ctx, itemID); err != nil {
		if errors.Is(err, commerce.ErrItemNotFound) {
			// Already gone remotely counts as removed.
			r.notifier.Notify(notify.Success(MsgItemRemoved))
			return nil
		}
		r.logger.Warn("item removal failed", "item_id", itemID, "error", err)
		if msg := commerce.ErrorMessage(err); msg != "" {
			r.notifier.Notify(notify.Error(msg))
		} else {
			r.notifier.Notify(notify.Error(MsgItemRemoveFailed))
		}
		return err
	}

	r.notifier.Notify(notify.Success(MsgItemRemoved))
	return nil
}

// Clear empties the cart, cancelling all pending edits first.
func (r *Reconciler) Clear(ctx context.Context) error {
	r.mu.Lock()
	for _, state := range r.lines {
		cancelTimer(state)
	}
	r.lines = make(map[string]*lineState)
	r.mu.Unlock()

	if err := r.client.ClearCart(ctx); err != nil {
		if msg := commerce.ErrorMessage(err); msg != "" {
			r.notifier.Notify(notify.Error(msg))
		} else {
			r.notifier.Notify(notify.Error(MsgCartClearFailed))
		}
		return err
	}

	r.notifier.Notify(notify.Success(MsgCartCleared))
	return nil
}

// Close cancels every pending debounce timer. Scheduled commits that have
// not fired yet will never fire; an in-flight network call is not cancelled,
// its result is simply discarded.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for _, state := range r.lines {
		cancelTimer(state)
	}
}

// LineView is a read-only snapshot of one line's edit state.
type LineView struct {
	ItemID    string `json:"itemId"`
	Draft     string `json:"draft"`
	Displayed int    `json:"displayed"`
	Committed int    `json:"committed"`
	InFlight  bool   `json:"inFlight"`
	Pending   bool   `json:"pending"`
}

// View returns the edit state for one line. ok is false when the line is
// not tracked (removed or never loaded).
func (r *Reconciler) View(itemID string) (LineView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.lines[itemID]
	if !ok {
		return LineView{}, false
	}
	return r.viewLocked(itemID, state), true
}

// Views returns snapshots for all tracked lines.
func (r *Reconciler) Views() []LineView {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]LineView, 0, len(r.lines))
	for id, state := range r.lines {
		out = append(out, r.viewLocked(id, state))
	}
	return out
}

func (r *Reconciler) viewLocked(itemID string, state *lineState) LineView {
	displayed, valid := parseQuantity(state.draft)
	if !valid {
		displayed = state.committed
	}
	return LineView{
		ItemID:    itemID,
		Draft:     state.draft,
		Displayed: displayed,
		Committed: state.committed,
		InFlight:  state.inflight,
		Pending:   state.timer != nil,
	}
}

// commit performs the remote quantity update for one line. At most one
// commit per line is in flight; a second attempt while one is outstanding
// is dropped, not queued. On failure the draft reverts to the committed
// value and the shopper is told why.
func (r *Reconciler) commit(ctx context.Context, itemID string, qty int, source string) {
	r.mu.Lock()
	state, ok := r.lines[itemID]
	if !ok || r.closed || state.inflight {
		r.mu.Unlock()
		return
	}
	state.inflight = true
	state.timer = nil
	r.mu.Unlock()

	line, err := r.client.UpdateCartItem(ctx, itemID, qty)

	r.mu.Lock()
	state, ok = r.lines[itemID]
	if !ok {
		// Line was removed while the update was in flight. Nothing to
		// reconcile; the response is ignored.
		r.mu.Unlock()
		return
	}
	state.inflight = false

	if err != nil {
		state.draft = strconv.Itoa(state.committed)
		r.mu.Unlock()

		if r.metrics != nil {
			r.metrics.QuantityCommitFailed(source)
		}
		r.logger.Warn("quantity update failed", "item_id", itemID, "quantity", qty, "error", err)
		if msg := commerce.ErrorMessage(err); msg != "" {
			r.notifier.Notify(notify.Error(msg))
		} else {
			r.notifier.Notify(notify.Error(MsgQuantityUpdateFailed))
		}
		return
	}

	confirmed := qty
	if line != nil {
		confirmed = line.Quantity
	}
	state.committed = confirmed
	r.mu.Unlock()

	r.notifier.Notify(notify.Success(MsgQuantityUpdated))
}

// supersede cancels an armed debounce that a newer edit replaced. Caller
// holds the reconciler lock.
func (r *Reconciler) supersede(state *lineState) {
	if state.timer == nil {
		return
	}
	state.timer.Stop()
	state.timer = nil
	if r.metrics != nil {
		r.metrics.DebounceSuperseded()
	}
}

// cancelTimer stops and clears a line's pending debounce. Caller holds the
// reconciler lock.
func cancelTimer(state *lineState) {
	if state.timer != nil {
		state.timer.Stop()
		state.timer = nil
	}
}

// stripNonDigits drops every non-digit rune, mirroring the input filter on
// the quantity field.
func stripNonDigits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseQuantity parses a draft value. Valid quantities are integers >= 1.
func parseQuantity(draft string) (int, bool) {
	if draft == "" {
		return 0, false
	}
	qty, err := strconv.Atoi(draft)
	if err != nil || qty < 1 {
		return 0, false
	}
	return qty, true
}
