package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fire_bridge/internal/models"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateMission(
	ctx context.Context,
	signalID string,
	payload models.MissionPayload,
	expiresAt time.Time,
) (missionID string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.CreateMission: %w", err)
		}
	}()

	data, err := sonic.Marshal(payload)
	if err != nil {
		return "", err
	}

	missionID = uuid.NewString()
	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx,
			`INSERT INTO missions (mission_id, signal_id, payload_json, status, expires_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			missionID, signalID, data, models.MissionPending, expiresAt)
		return err
	})
	if err != nil {
		return "", err
	}
	return missionID, nil
}

func (s *Store) GetMission(ctx context.Context, missionID string) (mission *models.Mission, err error) {
	defer func() {
		if err != nil && !errors.Is(err, models.ErrMissionNotFound) {
			err = fmt.Errorf("Store.GetMission: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		var (
			m    models.Mission
			data []byte
		)
		row := tx.QueryRow(ctxTx,
			`SELECT mission_id, signal_id, payload_json, status, expires_at, created_at
			 FROM missions WHERE mission_id = $1`,
			missionID)
		if err := row.Scan(&m.MissionID, &m.SignalID, &data, &m.Status, &m.ExpiresAt, &m.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrMissionNotFound
			}
			return err
		}
		if err := sonic.Unmarshal(data, &m.Payload); err != nil {
			return err
		}
		mission = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mission, nil
}

// TransitionMission moves a PENDING mission to a terminal status. Terminal
// states are final: a second transition returns ErrConflict.
func (s *Store) TransitionMission(ctx context.Context, missionID string, newStatus models.MissionStatus) (err error) {
	defer func() {
		if err != nil && !errors.Is(err, models.ErrConflict) && !errors.Is(err, models.ErrMissionNotFound) {
			err = fmt.Errorf("Store.TransitionMission: %w", err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctxTx,
			`UPDATE missions SET status = $2 WHERE mission_id = $1 AND status = $3`,
			missionID, newStatus, models.MissionPending)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}

		var exists bool
		err = tx.QueryRow(ctxTx,
			`SELECT EXISTS (SELECT 1 FROM missions WHERE mission_id = $1)`,
			missionID).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return models.ErrMissionNotFound
		}
		return models.ErrConflict
	})
}
