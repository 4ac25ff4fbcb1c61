package sweeper

import (
	"context"

	"fire_bridge/internal/modules/config"
	healthsvc "fire_bridge/internal/modules/health/service"
	"fire_bridge/internal/modules/sweeper/service"
	storesvc "fire_bridge/internal/modules/store/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("sweeper",
		fx.Provide(
			func(st *storesvc.Store, cfg *config.Config, state *healthsvc.State) *service.Sweeper {
				return service.New(st, cfg.ConfirmWait, state)
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			s *service.Sweeper,
			cfg *config.Config,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go s.Run(ctx, cfg.SweepInterval)
					return nil
				},
			})
		}),
	)
}
