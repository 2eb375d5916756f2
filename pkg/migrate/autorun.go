package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/logger"
)

// MaybeRunDev applies the schema on boot when running in dev with the
// auto-migrate flag. SQLite databases are brought up with GORM's AutoMigrate
// because the goose files target Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "auto-migrating sqlite schema")
		if err := AutoMigrate(ctx, client); err != nil {
			return err
		}
		logg.Info(ctx, "sqlite schema ready")
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	fsys, err := Source("")
	if err != nil {
		return err
	}
	results, err := Apply(ctx, sqlDB, fsys, CmdUp, 0)
	if err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	ctx = logg.WithField(ctx, "applied", len(results))
	logg.Info(ctx, "goose migrations completed")
	return nil
}

// AutoMigrate creates every model table through GORM.
func AutoMigrate(ctx context.Context, client *db.Client) error {
	if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}
	return nil
}
