package dispatch

import (
	"fire_bridge/internal/models"
	"fire_bridge/internal/modules/config"
	"fire_bridge/internal/modules/dispatch/service"
	"fire_bridge/internal/modules/router"
	routersvc "fire_bridge/internal/modules/router/service"
	storesvc "fire_bridge/internal/modules/store/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("dispatch",
		fx.Provide(
			service.NewGate,

			func(
				st *storesvc.Store,
				gate *service.Gate,
				reg *routersvc.Registry,
				queue chan models.FireCommand,
				cfg *config.Config,
			) *service.Dispatcher {
				return service.NewDispatcher(st, gate, reg, queue, cfg.PeerTTL, cfg.DefaultLot)
			},

			func(st *storesvc.Store, disp *service.Dispatcher, cfg *config.Config) *service.Intake {
				return service.NewIntake(st, disp, service.UserDefaults{
					RiskPct:       cfg.DefaultRiskPct,
					MaxConcurrent: cfg.DefaultMaxConcurrent,
					DailyDDLimit:  cfg.DefaultDailyDDLimit,
					Cooldown:      cfg.DefaultCooldown,
				})
			},
		),
		fx.Invoke(func(mux router.PublicMux, intake *service.Intake) {
			intake.Register(mux.ServeMux)
		}),
	)
}
