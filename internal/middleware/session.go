package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/wornwell/storefront/internal/cookie"
	"github.com/wornwell/storefront/internal/session"
)

const (
	// SessionContextKey is the context key for the resolved session
	SessionContextKey contextKey = "session"
)

// WithSession resolves the shopper session from the request cookie,
// creating a fresh one when the cookie is absent or expired. The session
// is stored in the request context.
func WithSession(manager *session.Manager, cookies *cookie.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var sess *session.Session
			if id := cookie.ReadSession(r); id != "" {
				attached, err := manager.Attach(ctx, id)
				switch {
				case err == nil:
					sess = attached
				case errors.Is(err, session.ErrNotFound):
					// Expired or unknown; fall through to create.
				default:
					GetLogger(ctx).Error("session attach failed", "error", err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
			}

			if sess == nil {
				created, err := manager.Create(ctx)
				if err != nil {
					GetLogger(ctx).Error("session create failed", "error", err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				sess = created
				cookies.SetSession(w, sess.ID, int(session.DefaultTTL.Seconds()))
			}

			ctx = context.WithValue(ctx, SessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the resolved session from the context.
func GetSession(ctx context.Context) *session.Session {
	if sess, ok := ctx.Value(SessionContextKey).(*session.Session); ok {
		return sess
	}
	return nil
}
