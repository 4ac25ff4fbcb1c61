package main

import (
	"context"
	"log"

	"fire_bridge/internal/modules/config"
	"fire_bridge/internal/modules/confirm"
	"fire_bridge/internal/modules/dispatch"
	"fire_bridge/internal/modules/health"
	"fire_bridge/internal/modules/postgres"
	"fire_bridge/internal/modules/router"
	"fire_bridge/internal/modules/store"
	"fire_bridge/internal/modules/sweeper"
	"fire_bridge/internal/notify"
	"fire_bridge/pkg/logger"
	"fire_bridge/pkg/tracing"

	"go.uber.org/fx"
)

const serviceName = "fire_bridge"

func main() {
	logger.Init(serviceName)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			notify.NewFromConfig,
		),
		config.Module(),
		postgres.Module(),
		store.Module(),
		health.Module(),
		router.Module(),
		dispatch.Module(),
		confirm.Module(),
		sweeper.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			if cfg.Jaeger.Host == "" {
				return nil
			}
			tracing.SetServiceName(serviceName)
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
			return nil
		}),
	)
	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	<-app.Done()
	if err := app.Stop(context.Background()); err != nil {
		log.Fatal(err)
	}
}
