// Package middleware provides HTTP middleware for the storefront server:
// request IDs, request-scoped logging, Prometheus metrics and session
// resolution.
package middleware

// contextKey is a private type for context keys to avoid collisions
type contextKey string
