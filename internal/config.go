package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Port     uint16
	BaseURL  string
	Commerce CommerceConfig
	Cart     CartConfig
	Shipping ShippingConfig
	Redis    RedisConfig
	Sentry   SentryConfig
	CORS     CORSConfig
}

// CommerceConfig holds the remote commerce API connection settings.
type CommerceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// CartConfig holds cart reconciliation tunables.
type CartConfig struct {
	// DebounceMillis is the quiet window after a typed quantity edit
	// before the update commits to the commerce API.
	DebounceMillis uint16
}

// ShippingConfig holds the configured shipping constants.
type ShippingConfig struct {
	FreeThreshold string
	FlatFee       string
	Currency      string
}

// RedisConfig holds the session store connection. An empty URL selects the
// in-memory store.
type RedisConfig struct {
	URL        string
	SessionTTL time.Duration
}

// SentryConfig holds configuration for Sentry error tracking
type SentryConfig struct {
	DSN         string
	Enabled     bool
	Environment string
	Release     string
	SampleRate  float64
	Debug       bool
}

// CORSConfig holds the allowed frontend origins.
type CORSConfig struct {
	AllowedOrigins []string
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvInt("PORT", 3000),
		BaseURL:  getEnv("BASE_URL", "http://localhost:3000"),
		Commerce: CommerceConfig{
			BaseURL: getEnv("COMMERCE_API_URL", "http://localhost:9000/api"),
			APIKey:  getEnv("COMMERCE_API_KEY", ""),
			Timeout: getEnvDuration("COMMERCE_API_TIMEOUT", 30*time.Second),
		},
		Cart: CartConfig{
			DebounceMillis: getEnvInt("CART_DEBOUNCE_MS", 800),
		},
		Shipping: ShippingConfig{
			FreeThreshold: getEnv("FREE_SHIPPING_THRESHOLD", "1000"),
			FlatFee:       getEnv("FLAT_SHIPPING_FEE", "50"),
			Currency:      getEnv("DEFAULT_CURRENCY", "USD"),
		},
		Redis: RedisConfig{
			URL:        getEnv("REDIS_URL", ""),
			SessionTTL: getEnvDuration("SESSION_TTL", 24*time.Hour),
		},
		Sentry: SentryConfig{
			DSN:         getEnv("SENTRY_DSN", ""),
			Enabled:     getEnvBool("SENTRY_ENABLED", false), // Disabled by default for development
			Environment: getEnv("SENTRY_ENVIRONMENT", "development"),
			Release:     getEnv("SENTRY_RELEASE", ""),
			SampleRate:  getEnvFloat("SENTRY_SAMPLE_RATE", 1.0),
			Debug:       getEnvBool("SENTRY_DEBUG", false),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{getEnv("FRONTEND_ORIGIN", "http://localhost:5173")},
		},
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.Env == "prod" && cfg.Commerce.APIKey == "" {
		return nil, fmt.Errorf("COMMERCE_API_KEY must be set in production environment")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var floatValue float64
		if _, err := fmt.Sscanf(value, "%f", &floatValue); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
