package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

func testLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: buf})
}

func TestRunTreatsCancellationAsClean(t *testing.T) {
	buf := &bytes.Buffer{}
	err := Run("worker", &config.Config{}, testLogger(buf), func(ctx context.Context, _ *config.Config, _ *logger.Logger) error {
		return fmt.Errorf("consumer loop: %w", context.Canceled)
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "worker stopped cleanly")
	assert.Contains(t, buf.String(), `"service_kind":"worker"`)
}

func TestRunReportsFailures(t *testing.T) {
	buf := &bytes.Buffer{}
	boom := errors.New("db unreachable")
	err := Run("api", &config.Config{}, testLogger(buf), func(context.Context, *config.Config, *logger.Logger) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "api stopped")
	assert.Contains(t, buf.String(), "db unreachable")
}

func TestNewLoggerUsesConfig(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "staging", LogLevel: "warn"}}
	logg := NewLogger("cron-worker", cfg)
	require.NotNil(t, logg)
}
