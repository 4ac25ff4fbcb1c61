package service

import (
	"context"
	"time"

	healthsvc "fire_bridge/internal/modules/health/service"
	"fire_bridge/pkg/logger"
)

// Store is the slice of the mission store the sweeper needs.
type Store interface {
	ExpireMissions(ctx context.Context, now time.Time) (int64, error)
	TimeoutStaleFires(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper is the timeout mechanism for aged-out work: PENDING missions
// past expiry and SENT fires whose confirmation never came. Both updates
// are guarded by status predicates, so a rerun that finds nothing eligible
// changes nothing.
type Sweeper struct {
	store       Store
	confirmWait time.Duration
	state       *healthsvc.State
}

func New(store Store, confirmWait time.Duration, state *healthsvc.State) *Sweeper {
	return &Sweeper{
		store:       store,
		confirmWait: confirmWait,
		state:       state,
	}
}

func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Sweep(ctx, time.Now()); err != nil {
				// the sweep is idempotent, the next tick picks up where
				// this one failed
				logger.Error("sweep failed: %v", err)
			}
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context, now time.Time) error {
	missions, err := s.store.ExpireMissions(ctx, now)
	if err != nil {
		return err
	}

	fires, err := s.store.TimeoutStaleFires(ctx, now.Add(-s.confirmWait))
	if err != nil {
		return err
	}

	if missions > 0 || fires > 0 {
		logger.Info("sweep: %d missions expired, %d fires timed out", missions, fires)
	}
	if s.state != nil {
		s.state.TouchSweep(now)
	}
	return nil
}
