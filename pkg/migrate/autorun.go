package migrate

import (
	"context"
	"fmt"

	"github.com/compunet/storefront/pkg/config"
	"github.com/compunet/storefront/pkg/db"
	"github.com/compunet/storefront/pkg/logger"
)

// MaybeRunDev applies pending migrations when the sql storage driver is in use,
// the app runs in dev mode and the auto-migrate flag is set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.Storage.Driver != config.StorageDriverSQL {
		return nil
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Dialect()})
	logg.Info(ctx, "storage.migrate.start")

	if err := Run(ctx, sqlDB, client.Dialect(), "", "up"); err != nil {
		return fmt.Errorf("applying storage migrations: %w", err)
	}

	logg.Info(ctx, "storage.migrate.done")
	return nil
}
