package models

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Peer wire protocol. Every frame carries a "type" tag; we decode the tag
// once at the transport boundary and hand typed frames to the rest of the
// fabric.

type FrameType string

const (
	FrameHello        FrameType = "HELLO"
	FrameHeartbeat    FrameType = "HEARTBEAT"
	FramePing         FrameType = "PING"
	FramePong         FrameType = "PONG"
	FrameFire         FrameType = "fire"
	FrameConfirmation FrameType = "confirmation"
)

// InboundFrame is implemented by every frame a peer may send us.
type InboundFrame interface {
	Kind() FrameType
}

type Hello struct {
	Type       FrameType `json:"type"`
	TargetUUID string    `json:"target_uuid"`
	NodeID     string    `json:"node_id,omitempty"`
	Timestamp  string    `json:"timestamp,omitempty"`
}

func (Hello) Kind() FrameType { return FrameHello }

type Heartbeat struct {
	Type       FrameType `json:"type"`
	TargetUUID string    `json:"target_uuid"`
}

func (Heartbeat) Kind() FrameType { return FrameHeartbeat }

type Ping struct {
	Type       FrameType `json:"type"`
	TargetUUID string    `json:"target_uuid,omitempty"`
}

func (Ping) Kind() FrameType { return FramePing }

type Pong struct {
	Type FrameType `json:"type"`
}

func NewPong() Pong { return Pong{Type: FramePong} }

func EncodePong() ([]byte, error) { return sonic.Marshal(NewPong()) }

// Confirmation reports the outcome of a fire command. Status on the wire is
// "success" or "failed".
type Confirmation struct {
	Type    FrameType `json:"type"`
	FireID  string    `json:"fire_id"`
	Status  string    `json:"status"`
	Ticket  int64     `json:"ticket,omitempty"`
	Price   float64   `json:"price,omitempty"`
	Message string    `json:"message,omitempty"`
}

func (Confirmation) Kind() FrameType { return FrameConfirmation }

const (
	ConfirmSuccess = "success"
	ConfirmFailed  = "failed"
)

// FireCommand is the one outbound business frame, addressed to exactly one
// peer.
type FireCommand struct {
	Type       FrameType `json:"type"`
	FireID     string    `json:"fire_id"`
	TargetUUID string    `json:"target_uuid"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"`
	Entry      float64   `json:"entry"`
	SL         float64   `json:"sl"`
	TP         float64   `json:"tp"`
	Lot        float64   `json:"lot"`
}

func (c FireCommand) Encode() ([]byte, error) {
	c.Type = FrameFire
	return sonic.Marshal(c)
}

type envelope struct {
	Type FrameType `json:"type"`
}

// DecodeFrame parses one inbound peer frame. Unknown or non-deserializable
// frames come back as an error; the caller logs and discards them.
func DecodeFrame(raw []byte) (InboundFrame, error) {
	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("undecodable frame: %w", err)
	}

	switch env.Type {
	case FrameHello:
		var f Hello
		if err := sonic.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("bad HELLO frame: %w", err)
		}
		if f.TargetUUID == "" {
			return nil, fmt.Errorf("HELLO frame without target_uuid")
		}
		return f, nil
	case FrameHeartbeat:
		var f Heartbeat
		if err := sonic.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("bad HEARTBEAT frame: %w", err)
		}
		if f.TargetUUID == "" {
			return nil, fmt.Errorf("HEARTBEAT frame without target_uuid")
		}
		return f, nil
	case FramePing:
		var f Ping
		if err := sonic.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("bad PING frame: %w", err)
		}
		return f, nil
	case FrameConfirmation:
		var f Confirmation
		if err := sonic.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("bad confirmation frame: %w", err)
		}
		if f.FireID == "" {
			return nil, fmt.Errorf("confirmation frame without fire_id")
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown frame type %q", env.Type)
	}
}
