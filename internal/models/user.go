package models

import "time"

type Tier string

const (
	TierPressPass Tier = "PRESS_PASS"
	TierNibbler   Tier = "NIBBLER"
	TierFang      Tier = "FANG"
	TierCommander Tier = "COMMANDER"
)

// User carries the per-user risk envelope the gate enforces. Provisioning
// (creating users, topping up balance) is an external collaborator; the
// fabric only mutates last_fire_at and the daily loss accumulator.
type User struct {
	UserID        int64         `json:"user_id"`
	Tier          Tier          `json:"tier"`
	RiskPct       float64       `json:"risk_pct"`       // % of balance at risk per fire
	MaxConcurrent int           `json:"max_concurrent"` // slot limit on non-terminal fires
	DailyDDLimit  float64       `json:"daily_dd_limit"` // absolute currency cap per UTC day
	Cooldown      time.Duration `json:"cooldown"`
	Balance       float64       `json:"balance"`
	LastFireAt    *time.Time    `json:"last_fire_at,omitempty"`
	DailyLoss     float64       `json:"daily_loss"`
	LossDay       string        `json:"loss_day"` // UTC day the accumulator belongs to, YYYY-MM-DD
}

// DailyLossFor returns the realized loss counted against today's cap,
// zero once the UTC day has rolled over.
func (u *User) DailyLossFor(now time.Time) float64 {
	if u.LossDay != now.UTC().Format("2006-01-02") {
		return 0
	}
	return u.DailyLoss
}

// WorstCaseRisk is the loss a stopped-out fire realizes under risk-based
// lot sizing.
func (u *User) WorstCaseRisk() float64 {
	return u.Balance * u.RiskPct / 100
}
