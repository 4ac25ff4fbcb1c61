package confirm

import (
	"context"

	"fire_bridge/internal/models"
	"fire_bridge/internal/modules/confirm/service"
	storesvc "fire_bridge/internal/modules/store/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("confirm",
		fx.Provide(
			func(st *storesvc.Store) *service.Receiver {
				return service.NewReceiver(st)
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			r *service.Receiver,
			confirmations chan models.Confirmation,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go r.Run(ctx, confirmations)
					return nil
				},
			})
		}),
	)
}
