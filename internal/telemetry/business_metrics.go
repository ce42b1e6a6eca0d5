package telemetry

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wornwell/storefront/internal/commerce"
)

// BusinessMetrics holds Prometheus metrics for business-level observability
// of the storefront: cart activity, the checkout funnel, and the remote
// commerce API.
type BusinessMetrics struct {
	// Cart
	CartUpdates       *prometheus.CounterVec
	CartUpdateFailed  *prometheus.CounterVec
	CartItemsRemoved  prometheus.Counter
	CartCleared       prometheus.Counter
	CartDebouncedSkip prometheus.Counter

	// Checkout funnel
	CheckoutStarted    prometheus.Counter
	CheckoutBlocked    *prometheus.CounterVec
	OrdersPlaced       prometheus.Counter
	OrderPlaceFailed   prometheus.Counter
	OrdersConfirmed    prometheus.Counter
	OrdersUnconfirmed  prometheus.Counter
	OrderValue         prometheus.Histogram

	// Addresses
	AddressesCreated prometheus.Counter
	AddressesDeleted prometheus.Counter

	// Remote commerce API
	CommerceAPILatency *prometheus.HistogramVec
	CommerceAPIErrors  *prometheus.CounterVec
}

// NewBusinessMetrics creates and registers all business metrics.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "wornwell"
	}

	subsystem := "storefront"

	return &BusinessMetrics{
		CartUpdates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_updates_total",
				Help:      "Quantity updates committed to the commerce API",
			},
			[]string{"source"}, // source: typed, stepper
		),
		CartUpdateFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_update_failures_total",
				Help:      "Quantity updates rejected by the commerce API",
			},
			[]string{"source"},
		),
		CartItemsRemoved: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_removed_total",
				Help:      "Cart lines removed",
			},
		),
		CartCleared: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_cleared_total",
				Help:      "Full cart clears",
			},
		),
		CartDebouncedSkip: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_debounced_skips_total",
				Help:      "Scheduled quantity commits superseded before firing",
			},
		),
		CheckoutStarted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_started_total",
				Help:      "Checkout page loads",
			},
		),
		CheckoutBlocked: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_blocked_total",
				Help:      "Order attempts blocked by the address selection gate",
			},
			[]string{"reason"}, // reason: missing_shipping, missing_billing
		),
		OrdersPlaced: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_placed_total",
				Help:      "Orders accepted by the commerce API",
			},
		),
		OrderPlaceFailed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_place_failures_total",
				Help:      "Order submissions rejected by the commerce API",
			},
		),
		OrdersConfirmed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_confirmed_total",
				Help:      "Orders whose post-payment validation succeeded",
			},
		),
		OrdersUnconfirmed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_unconfirmed_total",
				Help:      "Orders whose post-payment validation failed",
			},
		),
		OrderValue: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value",
				Help:      "Grand total of confirmed orders",
				Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500},
			},
		),
		AddressesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "addresses_created_total",
				Help:      "Addresses saved to the shopper's address book",
			},
		),
		AddressesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "addresses_deleted_total",
				Help:      "Addresses removed from the shopper's address book",
			},
		),
		CommerceAPILatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "commerce_api_latency_seconds",
				Help:      "Latency of remote commerce API calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CommerceAPIErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "commerce_api_errors_total",
				Help:      "Remote commerce API failures by operation and status",
			},
			[]string{"operation", "status"},
		),
	}
}

// ObserveRequest records one commerce API call. Plugged into the HTTP
// client as its Metrics hook.
func (m *BusinessMetrics) ObserveRequest(op string, elapsed time.Duration, err error) {
	m.CommerceAPILatency.WithLabelValues(op).Observe(elapsed.Seconds())
	if err == nil {
		return
	}

	status := "transport"
	var apiErr *commerce.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		status = strconv.Itoa(apiErr.StatusCode)
	}
	m.CommerceAPIErrors.WithLabelValues(op, status).Inc()
}

// QuantityCommitFailed counts a rejected cart quantity commit. Plugged
// into the cart reconciler as its Metrics hook.
func (m *BusinessMetrics) QuantityCommitFailed(source string) {
	m.CartUpdateFailed.WithLabelValues(source).Inc()
}

// DebounceSuperseded counts a scheduled quantity commit cancelled before
// it fired.
func (m *BusinessMetrics) DebounceSuperseded() {
	m.CartDebouncedSkip.Inc()
}
