package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-api/internal/auth"
	"github.com/angelmondragon/storefront-api/internal/cron"
	"github.com/angelmondragon/storefront-api/pkg/app"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/metrics"
	"github.com/angelmondragon/storefront-api/pkg/migrate"
	"github.com/angelmondragon/storefront-api/pkg/outbox"
	"github.com/angelmondragon/storefront-api/pkg/redis"
)

func main() {
	app.Main("cron-worker", run)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(cron.LockName), cron.LockTTLFor(cfg.Cron.Interval))
	if err != nil {
		return err
	}

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	tokenSweep, err := cron.NewRefreshTokenSweepJob(cron.RefreshTokenSweepJobParams{
		Logger:  logg,
		Tokens:  auth.NewTokenRepository(dbClient.DB()),
		Metrics: jobMetrics,
		Grace:   cfg.Cron.RefreshTokenGrace,
	})
	if err != nil {
		return err
	}
	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Metrics:    jobMetrics,
		Retention:  cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   cron.NewRegistry(tokenSweep, outboxRetention),
		Lock:       lock,
		Metrics:    jobMetrics,
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return err
	}
	return service.Run(ctx)
}
