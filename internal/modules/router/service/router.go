package service

import (
	"context"
	"time"

	"fire_bridge/internal/models"
	"fire_bridge/pkg/logger"
)

// Router drains the internal fire queue into the hub. It is stateless
// per-message; a failed forward is logged and the fire is left SENT for
// the sweeper to time out. The router never retries on its own.
type Router struct {
	hub *Hub
	ttl time.Duration
}

func NewRouter(hub *Hub, ttl time.Duration) *Router {
	return &Router{hub: hub, ttl: ttl}
}

func (r *Router) Run(ctx context.Context, queue <-chan models.FireCommand) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-queue:
			if !ok {
				return
			}
			if err := r.hub.Forward(cmd, time.Now(), r.ttl); err != nil {
				logger.Warn("fire %s not delivered: %v", cmd.FireID, err)
			}
		}
	}
}
