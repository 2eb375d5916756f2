package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-api/api/controllers"
	"github.com/angelmondragon/storefront-api/api/responses"
	"github.com/angelmondragon/storefront-api/api/routes"
	"github.com/angelmondragon/storefront-api/pkg/app"
	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/logger"
	"github.com/angelmondragon/storefront-api/pkg/metrics"
	"github.com/angelmondragon/storefront-api/pkg/migrate"
	"github.com/angelmondragon/storefront-api/pkg/redis"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	app.Main("api", run)
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	responses.ExposeInternalErrors(!cfg.App.IsProd())

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

	services, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Params{
		Config:   cfg,
		Logger:   logg,
		Cache:    redisClient,
		Metrics:  metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Gatherer: prometheus.DefaultGatherer,
		Ready:    map[string]controllers.Pinger{"database": dbClient, "redis": redisClient},
		Services: services,
	})
	return serve(ctx, logg, listenAddr(cfg), handler)
}

// listenAddr honours PORT for platforms that inject it.
func listenAddr(cfg *config.Config) string {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	return net.JoinHostPort("", port)
}

func serve(ctx context.Context, logg *logger.Logger, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	ctx = logg.WithField(ctx, "addr", addr)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logg.Info(ctx, "listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		logg.Info(ctx, "draining connections")
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
