package migrate

import (
	"context"
	"fmt"

	"github.com/jgechelper/backend/pkg/config"
	"github.com/jgechelper/backend/pkg/db"
	"github.com/jgechelper/backend/pkg/logger"
)

// MaybeRunDev applies pending migrations on startup when a SQL store runs in
// dev with JGEC_AUTO_MIGRATE set. Other environments migrate via cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil || cfg == nil || !cfg.Store.UsesSQL() {
		return nil
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if err := ValidateDir(DefaultDir); err != nil {
		return fmt.Errorf("validating migrations: %w", err)
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"dir": DefaultDir, "driver": client.Driver()})
	logg.Info(ctx, "migrate.autorun.start")
	if err := Run(ctx, sqlDB, client.Driver(), DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "migrate.autorun.done")
	return nil
}
