// Package storefront holds the JSON handlers behind the shop frontend:
// cart editing, checkout, the address book and the post-payment
// confirmation page.
package storefront

import (
	"encoding/json"
	"net/http"

	"github.com/wornwell/storefront/internal/domain"
	"github.com/wornwell/storefront/internal/middleware"
	"github.com/wornwell/storefront/internal/notify"
	"github.com/wornwell/storefront/internal/session"
	"github.com/wornwell/storefront/internal/telemetry"
)

// envelope is the standard JSON response shape. Notifications produced
// while handling the request ride along so the frontend can toast them.
type envelope struct {
	Success       bool                  `json:"success"`
	Data          interface{}           `json:"data,omitempty"`
	Error         string                `json:"error,omitempty"`
	Fields        map[string]string     `json:"fields,omitempty"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

// respondJSON writes a success envelope, draining the session's pending
// notifications into it.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	resp := envelope{Success: true, Data: data}
	if sess := middleware.GetSession(r.Context()); sess != nil {
		resp.Notifications = sess.Notifications.Drain()
	}
	writeEnvelope(w, r, status, resp)
}

// respondError writes a failure envelope. The HTTP status and user-facing
// message come from the domain error code; internal detail stays in logs.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	resp := envelope{
		Success: false,
		Error:   domain.ErrorMessage(err),
		Fields:  domain.GetValidationFields(err),
	}
	sess := middleware.GetSession(r.Context())
	if sess != nil {
		resp.Notifications = sess.Notifications.Drain()
	}

	status := statusFromCode(domain.ErrorCode(err))
	if domain.IsValidationError(err) {
		status = http.StatusBadRequest
		resp.Error = "Please correct the highlighted fields"
	}

	if status >= 500 {
		middleware.GetLogger(r.Context()).Error("request failed",
			"op", domain.ErrorOp(err),
			"error", err.Error(),
		)
		extras := map[string]interface{}{
			"op":   domain.ErrorOp(err),
			"path": r.URL.Path,
		}
		if sess != nil {
			telemetry.CaptureErrorWithSession(err, sess.ID, extras)
		} else {
			telemetry.CaptureError(err, extras)
		}
	}

	writeEnvelope(w, r, status, resp)
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		middleware.GetLogger(r.Context()).Error("encode response failed", "error", err)
	}
}

// statusFromCode maps domain error codes to HTTP status codes.
func statusFromCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EUNAVAILABLE:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requireSession pulls the session from the request context. The session
// middleware guarantees it on wired routes; a nil here is a programming
// error surfaced as a 500.
func requireSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		middleware.GetLogger(r.Context()).Error("no session in context", "path", r.URL.Path)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
	return sess
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.WrapError(err, domain.EINVALID, "handler.decode", "Invalid request body")
	}
	return nil
}
