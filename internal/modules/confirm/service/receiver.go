package service

import (
	"context"
	"errors"

	"fire_bridge/internal/models"
	"fire_bridge/pkg/logger"
)

// Store is the slice of the mission store the receiver needs.
type Store interface {
	GetFire(ctx context.Context, fireID string) (*models.Fire, error)
	UpdateFireStatus(ctx context.Context, fireID string, upd models.FireUpdate) error
	TransitionMission(ctx context.Context, missionID string, newStatus models.MissionStatus) error
}

// Receiver consumes peer confirmations and closes out fires. Duplicate or
// late confirmations (network retransmission, peer replays after
// reconnect) are discarded without error.
type Receiver struct {
	store Store
}

func NewReceiver(store Store) *Receiver {
	return &Receiver{store: store}
}

func (r *Receiver) Run(ctx context.Context, confirmations <-chan models.Confirmation) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-confirmations:
			if !ok {
				return
			}
			if err := r.Handle(ctx, c); err != nil {
				logger.Error("confirmation for fire %s: %v", c.FireID, err)
			}
		}
	}
}

// Handle applies one confirmation. A returned error means storage trouble;
// everything protocol-level (unknown fire, duplicate, odd status) resolves
// to a logged discard.
func (r *Receiver) Handle(ctx context.Context, c models.Confirmation) error {
	var status models.FireStatus
	switch c.Status {
	case models.ConfirmSuccess:
		status = models.FireFilled
	case models.ConfirmFailed:
		status = models.FireFailed
	default:
		logger.Warn("confirmation for fire %s with unknown status %q discarded", c.FireID, c.Status)
		return nil
	}

	fire, err := r.store.GetFire(ctx, c.FireID)
	if err != nil {
		if errors.Is(err, models.ErrFireNotFound) {
			logger.Warn("confirmation for unknown fire %s discarded", c.FireID)
			return nil
		}
		return err
	}
	if fire.Status.Terminal() {
		// duplicate delivery; the first one already applied
		return nil
	}

	upd := models.FireUpdate{Status: status, Reason: c.Message}
	if c.Ticket != 0 {
		ticket := c.Ticket
		upd.Ticket = &ticket
	}
	if c.Price != 0 {
		price := c.Price
		upd.Price = &price
	}

	if err := r.store.UpdateFireStatus(ctx, c.FireID, upd); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			// e.g. a confirmation raced the sweeper; terminal wins
			logger.Warn("confirmation for fire %s ignored: %v", c.FireID, err)
			return nil
		}
		return err
	}

	if status == models.FireFilled {
		logger.Info("fire %s filled, ticket %d at %.5f", c.FireID, c.Ticket, c.Price)
		if err := r.store.TransitionMission(ctx, fire.MissionID, models.MissionFilled); err != nil {
			if errors.Is(err, models.ErrConflict) {
				logger.Warn("mission %s already terminal on fill of fire %s", fire.MissionID, c.FireID)
				return nil
			}
			return err
		}
		return nil
	}

	// FAILED: the mission stays PENDING so the caller may issue a retry fire
	logger.Info("fire %s failed at peer: %s", c.FireID, c.Message)
	return nil
}
