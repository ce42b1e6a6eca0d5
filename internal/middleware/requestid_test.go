package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wornwell/storefront/internal/middleware"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(middleware.HeaderRequestID))
}

func TestRequestID_PropagatesInboundID(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set(middleware.HeaderRequestID, "edge-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "edge-42", seen)
	assert.Equal(t, "edge-42", w.Header().Get(middleware.HeaderRequestID))
}

func TestGetRequestID_OutsideMiddleware(t *testing.T) {
	assert.Empty(t, middleware.GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
