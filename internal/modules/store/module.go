package store

import (
	"fire_bridge/internal/modules/store/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("store",
		fx.Provide(
			service.New, // func(*db.PgTxManager) *service.Store
		),
	)
}
