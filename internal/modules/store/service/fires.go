package service

import (
	"context"
	"errors"
	"fmt"

	"fire_bridge/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateFire inserts a QUEUED fire after checking, in one serializable
// transaction, that the idempotency key is new and no other non-terminal
// fire exists for the same mission+user. A racer aborted with a
// serialization failure is retried by the tx manager and resolves to one
// of the sentinels on re-read; anything slipping past the checks falls
// through to the unique indexes, which map back to the same sentinels. So
// exactly one attempt wins regardless of timing.
//
// On ErrDuplicateIdempotencyKey the returned fireID is the existing fire.
func (s *Store) CreateFire(ctx context.Context, missionID string, userID int64, idemKey string) (fireID string, err error) {
	defer func() {
		if err != nil &&
			!errors.Is(err, models.ErrDuplicateIdempotencyKey) &&
			!errors.Is(err, models.ErrConcurrentFireExists) {
			err = fmt.Errorf("Store.CreateFire: %w", err)
		}
	}()

	newID := uuid.NewString()
	err = s.db.RunSerializable(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		var existing string
		scanErr := tx.QueryRow(ctxTx,
			`SELECT fire_id FROM fires WHERE idem = $1`, idemKey).Scan(&existing)
		if scanErr == nil {
			fireID = existing
			return models.ErrDuplicateIdempotencyKey
		}
		if !errors.Is(scanErr, pgx.ErrNoRows) {
			return scanErr
		}

		var inFlight bool
		scanErr = tx.QueryRow(ctxTx,
			`SELECT EXISTS (
				SELECT 1 FROM fires
				WHERE mission_id = $1 AND user_id = $2 AND status IN ($3, $4)
			)`,
			missionID, userID, models.FireQueued, models.FireSent).Scan(&inFlight)
		if scanErr != nil {
			return scanErr
		}
		if inFlight {
			return models.ErrConcurrentFireExists
		}

		_, execErr := tx.Exec(ctxTx,
			`INSERT INTO fires (fire_id, mission_id, user_id, status, idem)
			 VALUES ($1, $2, $3, $4, $5)`,
			newID, missionID, userID, models.FireQueued, idemKey)
		return execErr
	})

	switch uniqueViolation(err) {
	case "fires_idem_uq":
		// lost the insert race to the same logical request; surface its fire
		if existing, lookupErr := s.GetFireByIdem(ctx, idemKey); lookupErr == nil {
			return existing.FireID, models.ErrDuplicateIdempotencyKey
		}
		return "", models.ErrDuplicateIdempotencyKey
	case "fires_in_flight_uq":
		return "", models.ErrConcurrentFireExists
	}
	if err != nil {
		return fireID, err
	}
	return newID, nil
}

func (s *Store) GetFire(ctx context.Context, fireID string) (*models.Fire, error) {
	return s.getFire(ctx, `SELECT fire_id, mission_id, user_id, status, ticket, price, idem, reason, created_at, updated_at
		FROM fires WHERE fire_id = $1`, fireID)
}

// GetFireByIdem resolves an idempotent replay to the fire it already created.
func (s *Store) GetFireByIdem(ctx context.Context, idemKey string) (*models.Fire, error) {
	return s.getFire(ctx, `SELECT fire_id, mission_id, user_id, status, ticket, price, idem, reason, created_at, updated_at
		FROM fires WHERE idem = $1`, idemKey)
}

func (s *Store) getFire(ctx context.Context, query, arg string) (fire *models.Fire, err error) {
	defer func() {
		if err != nil && !errors.Is(err, models.ErrFireNotFound) {
			err = fmt.Errorf("Store.getFire: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		var f models.Fire
		row := tx.QueryRow(ctxTx, query, arg)
		scanErr := row.Scan(&f.FireID, &f.MissionID, &f.UserID, &f.Status,
			&f.Ticket, &f.Price, &f.IdemKey, &f.Reason, &f.CreatedAt, &f.UpdatedAt)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return models.ErrFireNotFound
			}
			return scanErr
		}
		fire = &f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fire, nil
}

// UpdateFireStatus applies one step of the fire state machine. The current
// row is locked so concurrent updates serialize, and transitions out of a
// terminal state are rejected.
func (s *Store) UpdateFireStatus(ctx context.Context, fireID string, upd models.FireUpdate) (err error) {
	defer func() {
		if err != nil &&
			!errors.Is(err, models.ErrFireNotFound) &&
			!errors.Is(err, models.ErrInvalidTransition) {
			err = fmt.Errorf("Store.UpdateFireStatus: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		var current models.FireStatus
		scanErr := tx.QueryRow(ctxTx,
			`SELECT status FROM fires WHERE fire_id = $1 FOR UPDATE`,
			fireID).Scan(&current)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return models.ErrFireNotFound
			}
			return scanErr
		}

		if !models.ValidFireTransition(current, upd.Status) {
			return models.ErrInvalidTransition
		}

		_, execErr := tx.Exec(ctxTx,
			`UPDATE fires SET
				status = $2,
				ticket = COALESCE($3, ticket),
				price = COALESCE($4, price),
				reason = CASE WHEN $5 = '' THEN reason ELSE $5 END,
				updated_at = now()
			 WHERE fire_id = $1`,
			fireID, upd.Status, upd.Ticket, upd.Price, upd.Reason)
		return execErr
	})
}

func (s *Store) CountActiveFires(ctx context.Context, userID int64) (count int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.CountActiveFires: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctxTx,
			`SELECT count(*) FROM fires WHERE user_id = $1 AND status IN ($2, $3)`,
			userID, models.FireQueued, models.FireSent).Scan(&count)
	})
	return count, err
}
