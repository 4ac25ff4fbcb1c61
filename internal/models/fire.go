package models

import "time"

type FireStatus string

const (
	FireQueued  FireStatus = "QUEUED"
	FireSent    FireStatus = "SENT"
	FireFilled  FireStatus = "FILLED"
	FireFailed  FireStatus = "FAILED"
	FireTimeout FireStatus = "TIMEOUT"
)

func (s FireStatus) Terminal() bool {
	return s == FireFilled || s == FireFailed || s == FireTimeout
}

// ValidFireTransition encodes QUEUED→SENT→{FILLED|FAILED}, SENT→TIMEOUT,
// QUEUED→FAILED (peer unreachable before send). A fire never regresses.
func ValidFireTransition(from, to FireStatus) bool {
	switch from {
	case FireQueued:
		return to == FireSent || to == FireFailed
	case FireSent:
		return to == FireFilled || to == FireFailed || to == FireTimeout
	default:
		return false
	}
}

// Fire is one execution attempt against a mission, bound to a user and a peer.
type Fire struct {
	FireID    string     `json:"fire_id"`
	MissionID string     `json:"mission_id"`
	UserID    int64      `json:"user_id"`
	Status    FireStatus `json:"status"`
	Ticket    *int64     `json:"ticket,omitempty"`
	Price     *float64   `json:"price,omitempty"`
	IdemKey   string     `json:"idem_key"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// FireUpdate is the mutable slice of a fire row. Nil pointer fields keep
// the stored value.
type FireUpdate struct {
	Status FireStatus
	Ticket *int64
	Price  *float64
	Reason string
}
