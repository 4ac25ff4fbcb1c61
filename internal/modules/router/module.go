package router

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"fire_bridge/internal/models"
	"fire_bridge/internal/modules/config"
	healthsvc "fire_bridge/internal/modules/health/service"
	"fire_bridge/internal/modules/router/service"
	"fire_bridge/internal/notify"

	"go.uber.org/fx"
)

// PublicMux is the peer-facing HTTP surface: /ws lives here, and other
// modules mount their intake handlers on it.
type PublicMux struct {
	*http.ServeMux
}

func NewPublicMux(hub *service.Hub) PublicMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	return PublicMux{mux}
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, mux PublicMux) {
	addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.PublicPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("router",
		fx.Provide(
			service.NewRegistry,
			func(cfg *config.Config) chan models.FireCommand {
				// internal fire queue between dispatcher and router
				return make(chan models.FireCommand, cfg.FireQueueMax)
			},
			func() chan models.Confirmation {
				return make(chan models.Confirmation, 64)
			},
			func(
				reg *service.Registry,
				n notify.Notifier,
				st *healthsvc.State,
				confirmations chan models.Confirmation,
			) *service.Hub {
				return service.NewHub(reg, n, st, confirmations)
			},
			func(hub *service.Hub, cfg *config.Config) *service.Router {
				return service.NewRouter(hub, cfg.PeerTTL)
			},
			NewPublicMux,
		),
		fx.Invoke(RunHTTP),
		fx.Invoke(func(
			lc fx.Lifecycle,
			r *service.Router,
			queue chan models.FireCommand,
			ctx context.Context,
		) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go r.Run(ctx, queue)
					return nil
				},
			})
		}),
	)
}
