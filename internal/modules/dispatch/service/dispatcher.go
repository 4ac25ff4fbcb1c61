package service

import (
	"context"
	"errors"
	"time"

	"fire_bridge/internal/models"
	"fire_bridge/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// Store is the slice of the mission store the dispatcher needs.
type Store interface {
	GetMission(ctx context.Context, missionID string) (*models.Mission, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	CountActiveFires(ctx context.Context, userID int64) (int, error)
	GetFireByIdem(ctx context.Context, idemKey string) (*models.Fire, error)
	CreateFire(ctx context.Context, missionID string, userID int64, idemKey string) (string, error)
	UpdateFireStatus(ctx context.Context, fireID string, upd models.FireUpdate) error
	TouchLastFire(ctx context.Context, userID int64, now time.Time) error
}

// Liveness is the read-only view of the router's registry.
type Liveness interface {
	IsFresh(peerID string, now time.Time, ttl time.Duration) bool
}

type FireRequest struct {
	MissionID  string  `json:"mission_id"`
	UserID     int64   `json:"user_id"`
	IdemKey    string  `json:"idem_key"`
	TargetUUID string  `json:"target_uuid"`
	Lot        float64 `json:"lot,omitempty"`
}

type Dispatcher struct {
	store      Store
	gate       *Gate
	live       Liveness
	queue      chan<- models.FireCommand
	ttl        time.Duration
	defaultLot float64
}

func NewDispatcher(
	store Store,
	gate *Gate,
	live Liveness,
	queue chan<- models.FireCommand,
	ttl time.Duration,
	defaultLot float64,
) *Dispatcher {
	return &Dispatcher{
		store:      store,
		gate:       gate,
		live:       live,
		queue:      queue,
		ttl:        ttl,
		defaultLot: defaultLot,
	}
}

// Dispatch admits one fire request. Every call ends in a fire_id bound to
// exactly one execution attempt, or a typed rejection — there is no path
// that drops a request without a recorded outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, req FireRequest) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "dispatcher.dispatch")
	defer span.Finish()
	span.SetTag("mission_id", req.MissionID)
	span.SetTag("user_id", req.UserID)

	now := time.Now()

	// idempotent replay: the same logical request yields the same fire,
	// never a second trade — checked before the gate so a replay can't be
	// bounced by its own cooldown
	if existing, err := d.store.GetFireByIdem(ctx, req.IdemKey); err == nil {
		return existing.FireID, nil
	} else if !errors.Is(err, models.ErrFireNotFound) {
		return "", err
	}

	mission, err := d.store.GetMission(ctx, req.MissionID)
	if err != nil {
		return "", err
	}
	if mission.Status.Terminal() {
		return "", models.ErrMissionClosed
	}

	user, err := d.store.GetUser(ctx, req.UserID)
	if err != nil {
		return "", err
	}
	active, err := d.store.CountActiveFires(ctx, req.UserID)
	if err != nil {
		return "", err
	}
	if err := d.gate.Admit(user, active, now); err != nil {
		logger.Info("fire for mission %s user %d rejected: %v", req.MissionID, req.UserID, err)
		return "", err
	}

	fireID, err := d.store.CreateFire(ctx, req.MissionID, req.UserID, req.IdemKey)
	switch {
	case errors.Is(err, models.ErrDuplicateIdempotencyKey):
		// lost the replay race after the pre-check; same fire either way
		return fireID, nil
	case errors.Is(err, models.ErrConcurrentFireExists):
		return "", models.ErrAlreadyInFlight
	case err != nil:
		return "", err
	}

	// reject up-front instead of queuing into a dead connection
	if !d.live.IsFresh(req.TargetUUID, now, d.ttl) {
		updErr := d.store.UpdateFireStatus(ctx, fireID, models.FireUpdate{
			Status: models.FireFailed,
			Reason: "peer unreachable",
		})
		if updErr != nil {
			return fireID, updErr
		}
		logger.Warn("fire %s failed: peer %s unreachable", fireID, req.TargetUUID)
		return fireID, models.ErrPeerUnreachable
	}

	if err := d.store.UpdateFireStatus(ctx, fireID, models.FireUpdate{Status: models.FireSent}); err != nil {
		return fireID, err
	}

	lot := req.Lot
	if lot <= 0 {
		lot = d.defaultLot
	}
	d.queue <- models.FireCommand{
		FireID:     fireID,
		TargetUUID: req.TargetUUID,
		Symbol:     mission.Payload.Symbol,
		Direction:  mission.Payload.Direction,
		Entry:      mission.Payload.Entry,
		SL:         mission.Payload.SL,
		TP:         mission.Payload.TP,
		Lot:        lot,
	}

	if err := d.store.TouchLastFire(ctx, req.UserID, now); err != nil {
		logger.Error("touch last_fire_at for user %d: %v", req.UserID, err)
	}
	return fireID, nil
}
