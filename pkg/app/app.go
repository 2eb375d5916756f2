// Package app holds the boot sequence shared by every storefront binary:
// .env, config, logger and signal handling.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// RunFunc is a binary's body. ctx is canceled on SIGINT or SIGTERM.
type RunFunc func(ctx context.Context, cfg *config.Config, logg *logger.Logger) error

// Boot reads .env when present, loads config and builds the service logger.
func Boot(service string) (*config.Config, *logger.Logger, error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logg := NewLogger(service, cfg)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logg.Warn(context.Background(), ".env present but unreadable")
	}
	return cfg, logg, nil
}

// NewLogger builds the logger every binary uses once config is known.
func NewLogger(service string, cfg *config.Config) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: service,
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
}

// Main boots service, runs fn until it returns or a signal arrives, and
// exits non-zero on any failure other than a clean shutdown.
func Main(service string, fn RunFunc) {
	cfg, logg, err := Boot(service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", service, err)
		os.Exit(1)
	}
	if err := Run(service, cfg, logg, fn); err != nil {
		os.Exit(1)
	}
}

// Run is Main without the process exit.
func Run(service string, cfg *config.Config, logg *logger.Logger, fn RunFunc) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "service_kind", service)

	logg.Info(ctx, service+" starting")
	err := fn(ctx, cfg, logg)
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, service+" stopped", err)
		return err
	}
	logg.Info(ctx, service+" stopped cleanly")
	return nil
}
