package migrate

import (
	"context"
	"database/sql"

	"github.com/voltride/voltride-backend/pkg/config"
	"github.com/voltride/voltride-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on startup. It only runs in
// dev environments with the auto-migrate feature flag enabled; in prod
// migrations go through the migrate binary.
func MaybeRunDev(ctx context.Context, cfg *config.Config, db *sql.DB, logg *logger.Logger) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	logg.Info(ctx, "running startup migrations")
	if err := Run(ctx, db, DefaultDir, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "startup migrations complete")
	return nil
}
