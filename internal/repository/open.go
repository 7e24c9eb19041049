package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nabha-health/telehealth-auth/internal/config"
	"github.com/nabha-health/telehealth-auth/internal/persistence"
)

// Open connects the identity store selected by AUTH_IDENTITY_STORE and
// returns it with a function releasing its connections.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (IdentityRepository, func(), error) {
	switch cfg.Auth.IdentityStore {
	case config.StoreSQLite:
		db, err := persistence.OpenSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return NewSQLiteIdentityRepository(db.DB), db.Close, nil
	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return NewIdentityRepository(pg.PoolHandle()), pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown identity store %q", cfg.Auth.IdentityStore)
	}
}
