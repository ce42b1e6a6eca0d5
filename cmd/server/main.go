package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/wornwell/storefront/internal"
	"github.com/wornwell/storefront/internal/commerce"
	"github.com/wornwell/storefront/internal/cookie"
	"github.com/wornwell/storefront/internal/handler/storefront"
	"github.com/wornwell/storefront/internal/middleware"
	"github.com/wornwell/storefront/internal/pricing"
	"github.com/wornwell/storefront/internal/router"
	"github.com/wornwell/storefront/internal/routes"
	"github.com/wornwell/storefront/internal/session"
	"github.com/wornwell/storefront/internal/telemetry"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize Sentry error tracking
	sentryCleanup, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Enabled:     cfg.Sentry.Enabled,
		Environment: cfg.Sentry.Environment,
		Release:     cfg.Sentry.Release,
		SampleRate:  cfg.Sentry.SampleRate,
		Debug:       cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer sentryCleanup()

	// ==========================================================================
	// Session store: Redis when configured, in-memory otherwise
	// ==========================================================================

	var store session.Store
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		logger.Info("Using Redis session store", "addr", opts.Addr)
		store = session.NewRedisStore(client, cfg.Redis.SessionTTL)
	} else {
		logger.Info("Using in-memory session store")
		mem := session.NewMemoryStore(cfg.Redis.SessionTTL)
		mem.StartJanitor(ctx, time.Minute)
		store = mem
	}

	// ==========================================================================
	// Commerce API client and per-session machinery
	// ==========================================================================

	httpMetrics := middleware.NewMetrics("wornwell")
	bizMetrics := telemetry.NewBusinessMetrics("wornwell")

	base, err := commerce.NewHTTPClient(commerce.HTTPConfig{
		BaseURL: cfg.Commerce.BaseURL,
		APIKey:  cfg.Commerce.APIKey,
		Timeout: cfg.Commerce.Timeout,
		Metrics: bizMetrics,
	})
	if err != nil {
		return fmt.Errorf("commerce client initialization failed: %w", err)
	}

	returnURL := cfg.BaseURL + "/order-confirmation"
	manager := session.NewManager(store,
		func(token string) commerce.Client { return base.WithSession(token) },
		logger,
		session.Config{
			Debounce:    time.Duration(cfg.Cart.DebounceMillis) * time.Millisecond,
			ReturnURL:   returnURL,
			CartMetrics: bizMetrics,
		},
	)
	defer manager.CloseAll()

	// Shipping constants
	threshold, err := decimal.NewFromString(cfg.Shipping.FreeThreshold)
	if err != nil {
		return fmt.Errorf("invalid FREE_SHIPPING_THRESHOLD: %w", err)
	}
	flatFee, err := decimal.NewFromString(cfg.Shipping.FlatFee)
	if err != nil {
		return fmt.Errorf("invalid FLAT_SHIPPING_FEE: %w", err)
	}
	calc := pricing.NewCalculator(pricing.Config{
		FreeShippingThreshold: threshold,
		FlatShippingFee:       flatFee,
		FallbackCurrency:      cfg.Shipping.Currency,
	})

	// ==========================================================================
	// Initialize middleware and handlers
	// ==========================================================================

	cookies := cookie.NewConfig(cfg.Env == "prod")

	storefrontDeps := routes.StorefrontDeps{
		CartHandler:              storefront.NewCartHandler(calc, bizMetrics),
		CheckoutHandler:          storefront.NewCheckoutHandler(manager, calc, bizMetrics),
		AddressHandler:           storefront.NewAddressHandler(manager, bizMetrics),
		OrderConfirmationHandler: storefront.NewOrderConfirmationHandler(bizMetrics),
	}

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		httpMetrics.Middleware,
		router.CORS(cfg.CORS.AllowedOrigins),
		router.Logger(logger),
		middleware.WithRequestLogger(logger),
	)

	// Metrics endpoint (should be protected in production via firewall)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		httpMetrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Shopper routes all run behind session resolution
	shop := r.Group(middleware.WithSession(manager, cookies))
	routes.RegisterStorefrontRoutes(shop, storefrontDeps)

	// ==========================================================================
	// Start server
	// ==========================================================================

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting storefront server", "address", addr, "commerce_api", cfg.Commerce.BaseURL)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
