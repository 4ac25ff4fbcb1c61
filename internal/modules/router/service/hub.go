package service

import (
	"net/http"
	"sync"
	"time"

	"fire_bridge/internal/models"
	healthsvc "fire_bridge/internal/modules/health/service"
	"fire_bridge/internal/notify"
	"fire_bridge/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Hub owns the peer connections and the liveness registry. Peers dial in
// over /ws, identify themselves with HELLO, and from then on fire commands
// addressed to their peer id go down their connection.
type Hub struct {
	reg           *Registry
	notifier      notify.Notifier
	state         *healthsvc.State
	confirmations chan<- models.Confirmation
	upgrader      websocket.Upgrader

	mu    sync.Mutex
	peers map[string]*peerConn
}

type peerConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

func (pc *peerConn) write(raw []byte) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	_ = pc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return pc.conn.WriteMessage(websocket.TextMessage, raw)
}

func NewHub(
	reg *Registry,
	notifier notify.Notifier,
	state *healthsvc.State,
	confirmations chan<- models.Confirmation,
) *Hub {
	return &Hub{
		reg:           reg,
		notifier:      notifier,
		state:         state,
		confirmations: confirmations,
		peers:         make(map[string]*peerConn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // peers dial in from EA terminals, no browser origin
			},
		},
	}
}

// HandleWS runs the whole lifecycle of one peer connection: upgrade,
// protocol keepalive, frame read loop, unregister on error.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed: %v", err)
		return
	}

	pc := &peerConn{conn: conn}
	h.state.PeerConnected()

	defer func() {
		h.unregister(pc)
		h.state.PeerDisconnected()
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// protocol-level keepalive, distinct from the business HEARTBEAT
	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		t := time.NewTicker(pingPeriod)
		defer t.Stop()
		for {
			select {
			case <-stopPing:
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if pc.id != "" {
				logger.Info("peer %s disconnected: %v", pc.id, err)
			}
			return
		}
		h.handleFrame(pc, raw)
	}
}

// handleFrame is one recoverable unit: a bad frame is logged and dropped,
// the read loop keeps going.
func (h *Hub) handleFrame(pc *peerConn, raw []byte) {
	frame, err := models.DecodeFrame(raw)
	if err != nil {
		logger.Warn("discarding inbound frame: %v", err)
		return
	}

	now := time.Now()
	switch f := frame.(type) {
	case models.Hello:
		h.register(pc, f.TargetUUID)
		h.reg.Touch(f.TargetUUID, now)
		logger.Info("peer %s HELLO (node %s)", f.TargetUUID, f.NodeID)
		h.notifier.Sendf("peer %s connected", f.TargetUUID)
	case models.Heartbeat:
		h.reg.Touch(f.TargetUUID, now)
	case models.Ping:
		// PING may omit the peer id; fall back to the registered one
		id := f.TargetUUID
		if id == "" {
			id = pc.id
		}
		h.reg.Touch(id, now)
		h.sendPong(pc)
	case models.Confirmation:
		if pc.id != "" {
			h.reg.Touch(pc.id, now)
		}
		h.confirmations <- f
	default:
		logger.Warn("discarding frame of kind %s", frame.Kind())
	}
}

func (h *Hub) sendPong(pc *peerConn) {
	raw, err := models.EncodePong()
	if err != nil {
		logger.Error("encode PONG: %v", err)
		return
	}
	if err := pc.write(raw); err != nil {
		logger.Warn("write PONG to %s: %v", pc.id, err)
	}
}

func (h *Hub) register(pc *peerConn, peerID string) {
	h.mu.Lock()
	old, ok := h.peers[peerID]
	pc.id = peerID
	h.peers[peerID] = pc
	h.mu.Unlock()

	// an EA reconnecting after a network drop supersedes its old connection
	if ok && old != pc {
		_ = old.conn.Close()
	}
}

func (h *Hub) unregister(pc *peerConn) {
	if pc.id == "" {
		return
	}
	h.mu.Lock()
	if cur, ok := h.peers[pc.id]; ok && cur == pc {
		delete(h.peers, pc.id)
	}
	h.mu.Unlock()
	h.notifier.Sendf("peer %s disconnected", pc.id)
}

// Forward delivers a fire command to the one addressed peer. Stale or
// unknown peers are a logged rejection, never a blind send; retry policy
// lives with the dispatcher and the sweeper, not here.
func (h *Hub) Forward(cmd models.FireCommand, now time.Time, ttl time.Duration) error {
	if !h.reg.IsFresh(cmd.TargetUUID, now, ttl) {
		logger.Warn("fire %s rejected: peer %s not fresh", cmd.FireID, cmd.TargetUUID)
		return models.ErrPeerUnreachable
	}

	h.mu.Lock()
	pc, ok := h.peers[cmd.TargetUUID]
	h.mu.Unlock()
	if !ok {
		logger.Warn("fire %s rejected: peer %s has no connection", cmd.FireID, cmd.TargetUUID)
		return models.ErrPeerUnreachable
	}

	raw, err := cmd.Encode()
	if err != nil {
		return err
	}
	if err := pc.write(raw); err != nil {
		logger.Warn("forward fire %s to peer %s failed: %v", cmd.FireID, cmd.TargetUUID, err)
		return err
	}
	logger.Info("fire %s forwarded to peer %s (%s %s)", cmd.FireID, cmd.TargetUUID, cmd.Symbol, cmd.Direction)
	return nil
}
