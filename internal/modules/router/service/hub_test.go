package service

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"fire_bridge/internal/models"
	healthsvc "fire_bridge/internal/modules/health/service"
	"fire_bridge/internal/notify"
	"fire_bridge/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init("test")
	os.Exit(m.Run())
}

type hubFixture struct {
	hub           *Hub
	reg           *Registry
	state         *healthsvc.State
	confirmations chan models.Confirmation
	srv           *httptest.Server
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()

	reg := NewRegistry()
	state := healthsvc.NewState()
	confirmations := make(chan models.Confirmation, 8)
	hub := NewHub(reg, notify.NewStdout(), state, confirmations)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	return &hubFixture{
		hub:           hub,
		reg:           reg,
		state:         state,
		confirmations: confirmations,
		srv:           srv,
	}
}

func (f *hubFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubHelloRegistersPeer(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"HELLO","target_uuid":"ea-1","node_id":"vps-1"}`))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.reg.IsFresh("ea-1", time.Now(), time.Minute)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubPingGetsPong(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PING"}`))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var pong models.Pong
	require.NoError(t, sonic.Unmarshal(raw, &pong))
	assert.Equal(t, models.FramePong, pong.Type)
}

func TestHubConfirmationReachesReceiverChannel(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"confirmation","fire_id":"f-1","status":"success","ticket":42,"price":1.0851}`))
	require.NoError(t, err)

	select {
	case c := <-f.confirmations:
		assert.Equal(t, "f-1", c.FireID)
		assert.Equal(t, models.ConfirmSuccess, c.Status)
		assert.EqualValues(t, 42, c.Ticket)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation never reached the channel")
	}
}

func TestHubMalformedFrameIsDiscarded(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"TRADE"}`)))

	// the read loop survives; a HELLO afterwards still lands
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"HELLO","target_uuid":"ea-9"}`)))
	require.Eventually(t, func() bool {
		return f.reg.IsFresh("ea-9", time.Now(), time.Minute)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubForwardDeliversToAddressedPeer(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"HELLO","target_uuid":"ea-1"}`)))
	require.Eventually(t, func() bool {
		return f.reg.IsFresh("ea-1", time.Now(), time.Minute)
	}, 2*time.Second, 10*time.Millisecond)

	cmd := models.FireCommand{
		FireID:     "f-7",
		TargetUUID: "ea-1",
		Symbol:     "EURUSD",
		Direction:  "BUY",
		Entry:      1.0850,
		SL:         1.0830,
		TP:         1.0890,
		Lot:        0.01,
	}
	require.NoError(t, f.hub.Forward(cmd, time.Now(), time.Minute))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got models.FireCommand
	require.NoError(t, sonic.Unmarshal(raw, &got))
	assert.Equal(t, models.FrameFire, got.Type)
	assert.Equal(t, "f-7", got.FireID)
	assert.Equal(t, "EURUSD", got.Symbol)
}

func TestHubForwardRejectsUnknownPeer(t *testing.T) {
	f := newHubFixture(t)

	err := f.hub.Forward(models.FireCommand{FireID: "f-1", TargetUUID: "ghost"}, time.Now(), time.Minute)
	assert.ErrorIs(t, err, models.ErrPeerUnreachable)
}

func TestHubForwardRejectsStalePeer(t *testing.T) {
	f := newHubFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"HELLO","target_uuid":"ea-1"}`)))
	require.Eventually(t, func() bool {
		_, ok := f.reg.LastSeen("ea-1")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	// connection exists but the peer has been silent past the ttl
	future := time.Now().Add(10 * time.Minute)
	err := f.hub.Forward(models.FireCommand{FireID: "f-1", TargetUUID: "ea-1"}, future, time.Minute)
	assert.ErrorIs(t, err, models.ErrPeerUnreachable)
}
