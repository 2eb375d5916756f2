// Command smoke runs a short read-only check against a deployed API: the
// readiness check, a catalog page, and a login round trip when credentials
// are configured.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/angelmondragon/storefront-api/pkg/apiclient"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

type settings struct {
	BaseURL  string        `envconfig:"BASE_URL" default:"http://localhost:8080"`
	Email    string        `envconfig:"EMAIL"`
	Password string        `envconfig:"PASSWORD"`
	Timeout  time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

func main() {
	var s settings
	if err := envconfig.Process("STOREFRONT_SMOKE", &s); err != nil {
		fmt.Fprintf(os.Stderr, "smoke: %v\n", err)
		os.Exit(2)
	}
	flag.StringVar(&s.BaseURL, "base-url", s.BaseURL, "API base url")
	flag.StringVar(&s.Email, "email", s.Email, "account to log in with; login is skipped when empty")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "smoke", Level: zerolog.InfoLevel, Format: logger.FormatConsole})
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	client, err := apiclient.New(s.BaseURL)
	if err == nil {
		err = run(ctx, client, s, logg)
	}
	if err != nil {
		logg.Error(ctx, "smoke check failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "smoke check passed")
}

func run(ctx context.Context, client *apiclient.Client, s settings, logg *logger.Logger) error {
	resp, err := client.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/health/ready"})
	if err != nil {
		return fmt.Errorf("readiness: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("readiness: status %d", resp.StatusCode)
	}

	page, err := client.ListProducts(ctx, apiclient.ProductQuery{Limit: 5, Sort: "newest"})
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"products": page.Pagination.Total,
		"sampled":  len(page.Items),
	}), "catalog reachable")

	if s.Email == "" {
		return nil
	}
	if s.Password == "" {
		return errors.New("STOREFRONT_SMOKE_PASSWORD is required with -email")
	}
	if _, err := client.Login(ctx, s.Email, s.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	me, err := client.Me(ctx)
	if err != nil {
		return fmt.Errorf("me: %w", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"user_id": me.ID, "role": me.Role}), "login round trip ok")
	return client.Logout(ctx)
}
