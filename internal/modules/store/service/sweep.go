package service

import (
	"context"
	"fmt"
	"time"

	"fire_bridge/internal/models"

	"github.com/jackc/pgx/v5"
)

// ExpireMissions bulk-times-out PENDING missions past their deadline. The
// status predicate makes reruns no-ops.
func (s *Store) ExpireMissions(ctx context.Context, now time.Time) (expired int64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.ExpireMissions: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, execErr := tx.Exec(ctxTx,
			`UPDATE missions SET status = $1 WHERE status = $2 AND expires_at < $3`,
			models.MissionTimeout, models.MissionPending, now)
		if execErr != nil {
			return execErr
		}
		expired = tag.RowsAffected()
		return nil
	})
	return expired, err
}

// TimeoutStaleFires resolves SENT fires whose confirmation never arrived.
// This is the safety net against a peer that accepted a command and went
// silent.
func (s *Store) TimeoutStaleFires(ctx context.Context, cutoff time.Time) (timedOut int64, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.TimeoutStaleFires: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, execErr := tx.Exec(ctxTx,
			`UPDATE fires SET status = $1, reason = $2, updated_at = now()
			 WHERE status = $3 AND updated_at < $4`,
			models.FireTimeout, "no confirmation within wait bound", models.FireSent, cutoff)
		if execErr != nil {
			return execErr
		}
		timedOut = tag.RowsAffected()
		return nil
	})
	return timedOut, err
}
