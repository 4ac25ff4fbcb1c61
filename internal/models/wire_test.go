package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	t.Run("hello", func(t *testing.T) {
		f, err := DecodeFrame([]byte(`{"type":"HELLO","target_uuid":"ea-7","node_id":"vps-1","timestamp":"2026-01-01T00:00:00Z"}`))
		require.NoError(t, err)
		hello, ok := f.(Hello)
		require.True(t, ok)
		assert.Equal(t, "ea-7", hello.TargetUUID)
		assert.Equal(t, "vps-1", hello.NodeID)
		assert.Equal(t, FrameHello, f.Kind())
	})

	t.Run("heartbeat", func(t *testing.T) {
		f, err := DecodeFrame([]byte(`{"type":"HEARTBEAT","target_uuid":"ea-7"}`))
		require.NoError(t, err)
		hb, ok := f.(Heartbeat)
		require.True(t, ok)
		assert.Equal(t, "ea-7", hb.TargetUUID)
	})

	t.Run("ping without peer id is still valid", func(t *testing.T) {
		f, err := DecodeFrame([]byte(`{"type":"PING"}`))
		require.NoError(t, err)
		assert.Equal(t, FramePing, f.Kind())
	})

	t.Run("confirmation", func(t *testing.T) {
		f, err := DecodeFrame([]byte(`{"type":"confirmation","fire_id":"f-1","status":"success","ticket":123456,"price":1.0851}`))
		require.NoError(t, err)
		c, ok := f.(Confirmation)
		require.True(t, ok)
		assert.Equal(t, "f-1", c.FireID)
		assert.Equal(t, ConfirmSuccess, c.Status)
		assert.EqualValues(t, 123456, c.Ticket)
		assert.InDelta(t, 1.0851, c.Price, 1e-9)
	})

	t.Run("hello without target_uuid is rejected", func(t *testing.T) {
		_, err := DecodeFrame([]byte(`{"type":"HELLO"}`))
		assert.Error(t, err)
	})

	t.Run("confirmation without fire_id is rejected", func(t *testing.T) {
		_, err := DecodeFrame([]byte(`{"type":"confirmation","status":"success"}`))
		assert.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeFrame([]byte(`{"type":"TRADE"}`))
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeFrame([]byte(`{"type":`))
		assert.Error(t, err)
	})
}

func TestFireCommandEncode(t *testing.T) {
	cmd := FireCommand{
		FireID:     "f-9",
		TargetUUID: "ea-7",
		Symbol:     "EURUSD",
		Direction:  "BUY",
		Entry:      1.0850,
		SL:         1.0830,
		TP:         1.0890,
		Lot:        0.01,
	}
	raw, err := cmd.Encode()
	require.NoError(t, err)

	// the type tag is stamped on encode so callers can't forget it
	assert.Contains(t, string(raw), `"type":"fire"`)
	assert.Contains(t, string(raw), `"fire_id":"f-9"`)
	assert.Contains(t, string(raw), `"target_uuid":"ea-7"`)
}
