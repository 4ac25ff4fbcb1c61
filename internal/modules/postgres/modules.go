package postgres

import (
	"context"
	"fmt"

	"fire_bridge/internal/modules/config"
	"fire_bridge/pkg/db"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*db.PgTxManager, error) {
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN: cfg.DB,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					return nil, err
				}

				if err = Migrate(ctx, poolMaster); err != nil {
					return nil, fmt.Errorf("failed to migrate: %w", err)
				}

				return db.NewPgTxManager(poolMaster), nil
			},
		),
	)
}
