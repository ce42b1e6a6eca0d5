package telemetry_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wornwell/storefront/internal/telemetry"
)

// Every capture helper runs on the request path, so all of them must be
// no-ops rather than panics when error tracking is off.
func TestSentryHelpersNoopWhenDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cleanup, err := telemetry.InitSentry(telemetry.SentryConfig{Enabled: false}, logger)
	require.NoError(t, err)
	defer cleanup()

	assert.False(t, telemetry.IsEnabled())

	telemetry.CaptureError(errors.New("boom"), map[string]interface{}{"op": "test"})
	telemetry.CaptureErrorWithSession(errors.New("boom"), "sess_1", nil)
	telemetry.AddBreadcrumb("checkout", "order placement attempted", nil)
	telemetry.CaptureRecovered("panic value", map[string]interface{}{"path": "/cart"})
}

func TestInitSentryDisablesWithoutDSN(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cleanup, err := telemetry.InitSentry(telemetry.SentryConfig{Enabled: true}, logger)
	require.NoError(t, err)
	defer cleanup()

	assert.False(t, telemetry.IsEnabled())
}
