package service

import (
	"time"

	"fire_bridge/internal/models"
)

// Gate runs the admission checks in front of the dispatcher: slots,
// daily drawdown, cooldown. It is purely advisory — a rejection mutates
// nothing, and each check fails with its own reason code.
type Gate struct{}

func NewGate() *Gate { return &Gate{} }

func (g *Gate) Admit(user *models.User, activeFires int, now time.Time) error {
	if user.MaxConcurrent > 0 && activeFires >= user.MaxConcurrent {
		return models.ErrSlotLimitExceeded
	}

	if user.DailyDDLimit > 0 &&
		user.DailyLossFor(now)+user.WorstCaseRisk() > user.DailyDDLimit {
		return models.ErrDrawdownCapExceeded
	}

	if user.Cooldown > 0 && user.LastFireAt != nil &&
		now.Sub(*user.LastFireAt) < user.Cooldown {
		return models.ErrCooldownActive
	}

	return nil
}
