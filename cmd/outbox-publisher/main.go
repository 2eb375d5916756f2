package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-api/pkg/app"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/migrate"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/outbox/registry"
	"github.com/angelmondragon/storefront-api/pkg/pubsub"
)

func main() {
	app.Main("outbox-publisher", run)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer pubsubClient.Close()

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   events,
	})
	if err != nil {
		return err
	}
	return service.Run(ctx)
}
