package main

import (
	"context"

	"github.com/angelmondragon/storefront-api/internal/notifications"
	"github.com/angelmondragon/storefront-api/pkg/app"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-api/pkg/pubsub"
	"github.com/angelmondragon/storefront-api/pkg/redis"
)

func main() {
	app.Main("worker", run)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer pubsubClient.Close()

	if err := pubsubClient.EnsureSubscription(ctx, cfg.PubSub.DomainSubscription, cfg.PubSub.DomainTopic); err != nil {
		return err
	}

	processed, err := idempotency.NewManager(redisClient, cfg.PubSub.ProcessedEventTTL)
	if err != nil {
		return err
	}
	alerts, err := notifications.NewConsumer(pubsubClient.DomainSubscription(), processed, logg)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Logger:    logg,
		RedisPing: redisClient.Ping,
		PubSub:    pubsubClient.Ping,
		Consumers: map[string]consumer{"inventory-alerts": alerts},
	})
	if err != nil {
		return err
	}
	return service.Run(ctx)
}
