package storefront

import (
	"net/http"

	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/middleware"
	"github.com/wornwell/storefront/internal/session"
	"github.com/wornwell/storefront/internal/telemetry"
)

// AddressHandler handles the shopper's address book routes.
type AddressHandler struct {
	manager *session.Manager
	metrics *telemetry.BusinessMetrics
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(manager *session.Manager, metrics *telemetry.BusinessMetrics) *AddressHandler {
	return &AddressHandler{manager: manager, metrics: metrics}
}

// List handles GET /account/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	addresses, err := sess.AddressBook.List(r.Context(), sess.Selection)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.persist(r, sess)
	respondJSON(w, r, http.StatusOK, addresses)
}

// Create handles POST /account/addresses
func (h *AddressHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	var payload commerce.AddressPayload
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, r, err)
		return
	}

	created, err := sess.AddressBook.Create(r.Context(), sess.Selection, payload)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.metrics.AddressesCreated.Inc()

	h.persist(r, sess)
	respondJSON(w, r, http.StatusCreated, created)
}

// Update handles POST /account/addresses/{id}
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	var payload commerce.AddressPayload
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, r, err)
		return
	}

	if err := sess.AddressBook.Update(r.Context(), r.PathValue("id"), payload); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, nil)
}

// Delete handles POST /account/addresses/{id}/delete
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	if err := sess.AddressBook.Delete(r.Context(), sess.Selection, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	h.metrics.AddressesDeleted.Inc()

	h.persist(r, sess)
	respondJSON(w, r, http.StatusOK, sess.Selection)
}

// SetDefault handles POST /account/addresses/{id}/default
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	sess := requireSession(w, r)
	if sess == nil {
		return
	}

	if err := sess.AddressBook.SetDefault(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, nil)
}

func (h *AddressHandler) persist(r *http.Request, sess *session.Session) {
	if err := h.manager.Persist(r.Context(), sess); err != nil {
		middleware.GetLogger(r.Context()).Error("persist session failed",
			"session_id", sess.ID, "error", err)
	}
}
