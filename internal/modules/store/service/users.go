package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fire_bridge/internal/models"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetUser(ctx context.Context, userID int64) (user *models.User, err error) {
	defer func() {
		if err != nil && !errors.Is(err, models.ErrUserNotFound) {
			err = fmt.Errorf("Store.GetUser: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		var (
			u         models.User
			cooldownS int
		)
		row := tx.QueryRow(ctxTx,
			`SELECT user_id, tier, risk_pct, max_concurrent, daily_dd_limit, cooldown_s,
				balance_cache, last_fire_at, daily_loss, loss_day
			 FROM users WHERE user_id = $1`,
			userID)
		scanErr := row.Scan(&u.UserID, &u.Tier, &u.RiskPct, &u.MaxConcurrent, &u.DailyDDLimit,
			&cooldownS, &u.Balance, &u.LastFireAt, &u.DailyLoss, &u.LossDay)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return models.ErrUserNotFound
			}
			return scanErr
		}
		u.Cooldown = time.Duration(cooldownS) * time.Second
		user = &u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpsertUser is the provisioning surface: an external collaborator creates
// and re-tunes users through it.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.UpsertUser: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctxTx,
			`INSERT INTO users (user_id, tier, risk_pct, max_concurrent, daily_dd_limit, cooldown_s, balance_cache)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (user_id) DO UPDATE SET
				tier = EXCLUDED.tier,
				risk_pct = EXCLUDED.risk_pct,
				max_concurrent = EXCLUDED.max_concurrent,
				daily_dd_limit = EXCLUDED.daily_dd_limit,
				cooldown_s = EXCLUDED.cooldown_s,
				balance_cache = EXCLUDED.balance_cache`,
			user.UserID, user.Tier, user.RiskPct, user.MaxConcurrent,
			user.DailyDDLimit, int(user.Cooldown/time.Second), user.Balance)
		return execErr
	})
}

// TouchLastFire stamps the cooldown clock after a fire is admitted.
func (s *Store) TouchLastFire(ctx context.Context, userID int64, now time.Time) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.TouchLastFire: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctxTx,
			`UPDATE users SET last_fire_at = $2 WHERE user_id = $1`,
			userID, now)
		return execErr
	})
}

// AddRealizedLoss feeds the daily drawdown accumulator, resetting it when
// the UTC day rolls over.
func (s *Store) AddRealizedLoss(ctx context.Context, userID int64, loss float64, now time.Time) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.AddRealizedLoss: %w", err)
		}
	}()

	day := now.UTC().Format("2006-01-02")
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, execErr := tx.Exec(ctxTx,
			`UPDATE users SET
				daily_loss = CASE WHEN loss_day = $3 THEN daily_loss + $2 ELSE $2 END,
				loss_day = $3
			 WHERE user_id = $1`,
			userID, loss, day)
		return execErr
	})
}
