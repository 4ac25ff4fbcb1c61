package models

import "time"

type MissionStatus string

const (
	MissionPending MissionStatus = "PENDING"
	MissionFilled  MissionStatus = "FILLED"
	MissionFailed  MissionStatus = "FAILED"
	MissionTimeout MissionStatus = "TIMEOUT"
)

// Terminal missions are the audit trail: status never changes again.
func (s MissionStatus) Terminal() bool {
	return s == MissionFilled || s == MissionFailed || s == MissionTimeout
}

// MissionPayload is what the signal producer hands over. The fabric only
// reads symbol/direction/levels to build the fire command; the rest rides
// along for the audit trail.
type MissionPayload struct {
	Symbol     string  `json:"symbol"`
	Direction  string  `json:"direction"` // BUY / SELL
	Entry      float64 `json:"entry"`
	SL         float64 `json:"sl"`
	TP         float64 `json:"tp"`
	Confidence float64 `json:"confidence,omitempty"`
	Pattern    string  `json:"pattern,omitempty"`
}

type Mission struct {
	MissionID string         `json:"mission_id"`
	SignalID  string         `json:"signal_id"`
	Payload   MissionPayload `json:"payload"`
	Status    MissionStatus  `json:"status"`
	ExpiresAt time.Time      `json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
}
