package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidFireTransition(t *testing.T) {
	cases := []struct {
		from, to FireStatus
		ok       bool
	}{
		{FireQueued, FireSent, true},
		{FireQueued, FireFailed, true},
		{FireQueued, FireFilled, false},
		{FireQueued, FireTimeout, false},
		{FireSent, FireFilled, true},
		{FireSent, FireFailed, true},
		{FireSent, FireTimeout, true},
		{FireSent, FireQueued, false},
		{FireFilled, FireFailed, false},
		{FireFailed, FireSent, false},
		{FireTimeout, FireFilled, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.ok, ValidFireTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.False(t, MissionPending.Terminal())
	assert.True(t, MissionFilled.Terminal())
	assert.True(t, MissionFailed.Terminal())
	assert.True(t, MissionTimeout.Terminal())

	assert.False(t, FireQueued.Terminal())
	assert.False(t, FireSent.Terminal())
	assert.True(t, FireFilled.Terminal())
	assert.True(t, FireFailed.Terminal())
	assert.True(t, FireTimeout.Terminal())
}

func TestUserDailyLossRollover(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	u := &User{DailyLoss: 120, LossDay: "2026-08-24"}
	assert.InDelta(t, 120, u.DailyLossFor(now), 1e-9)

	// yesterday's losses don't count against today's cap
	u.LossDay = "2026-08-23"
	assert.Zero(t, u.DailyLossFor(now))
}
