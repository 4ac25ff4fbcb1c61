package service

import (
	"context"
	"os"
	"testing"

	"fire_bridge/internal/models"
	"fire_bridge/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init("test")
	os.Exit(m.Run())
}

type fakeStore struct {
	fires    map[string]*models.Fire
	missions map[string]*models.Mission

	fireUpdates    int
	missionUpdates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		fires:    make(map[string]*models.Fire),
		missions: make(map[string]*models.Mission),
	}
}

func (s *fakeStore) GetFire(_ context.Context, id string) (*models.Fire, error) {
	f, ok := s.fires[id]
	if !ok {
		return nil, models.ErrFireNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *fakeStore) UpdateFireStatus(_ context.Context, id string, upd models.FireUpdate) error {
	f, ok := s.fires[id]
	if !ok {
		return models.ErrFireNotFound
	}
	if !models.ValidFireTransition(f.Status, upd.Status) {
		return models.ErrInvalidTransition
	}
	f.Status = upd.Status
	if upd.Ticket != nil {
		f.Ticket = upd.Ticket
	}
	if upd.Price != nil {
		f.Price = upd.Price
	}
	s.fireUpdates++
	return nil
}

func (s *fakeStore) TransitionMission(_ context.Context, id string, st models.MissionStatus) error {
	m, ok := s.missions[id]
	if !ok {
		return models.ErrMissionNotFound
	}
	if m.Status.Terminal() {
		return models.ErrConflict
	}
	m.Status = st
	s.missionUpdates++
	return nil
}

func seed(s *fakeStore) {
	s.missions["m-1"] = &models.Mission{MissionID: "m-1", Status: models.MissionPending}
	s.fires["f-1"] = &models.Fire{
		FireID:    "f-1",
		MissionID: "m-1",
		UserID:    7,
		Status:    models.FireSent,
	}
}

func successFrame() models.Confirmation {
	return models.Confirmation{
		FireID: "f-1",
		Status: models.ConfirmSuccess,
		Ticket: 42,
		Price:  1.0851,
	}
}

func TestHandleFillClosesFireAndMission(t *testing.T) {
	st := newFakeStore()
	seed(st)
	r := NewReceiver(st)

	require.NoError(t, r.Handle(context.Background(), successFrame()))

	fire := st.fires["f-1"]
	assert.Equal(t, models.FireFilled, fire.Status)
	require.NotNil(t, fire.Ticket)
	assert.EqualValues(t, 42, *fire.Ticket)
	require.NotNil(t, fire.Price)
	assert.InDelta(t, 1.0851, *fire.Price, 1e-9)

	assert.Equal(t, models.MissionFilled, st.missions["m-1"].Status)
}

func TestHandleDuplicateConfirmationIsNoOp(t *testing.T) {
	st := newFakeStore()
	seed(st)
	r := NewReceiver(st)

	require.NoError(t, r.Handle(context.Background(), successFrame()))
	updatesAfterFirst := st.fireUpdates

	// retransmitted frame: applied once, no error on the second delivery
	require.NoError(t, r.Handle(context.Background(), successFrame()))
	assert.Equal(t, updatesAfterFirst, st.fireUpdates)
	assert.Equal(t, 1, st.missionUpdates)
}

func TestHandleFailureKeepsMissionPending(t *testing.T) {
	st := newFakeStore()
	seed(st)
	r := NewReceiver(st)

	err := r.Handle(context.Background(), models.Confirmation{
		FireID:  "f-1",
		Status:  models.ConfirmFailed,
		Message: "not enough margin",
	})
	require.NoError(t, err)

	assert.Equal(t, models.FireFailed, st.fires["f-1"].Status)
	// a single failed attempt doesn't close the mission; retry is the
	// caller's call
	assert.Equal(t, models.MissionPending, st.missions["m-1"].Status)
}

func TestHandleUnknownFireDiscarded(t *testing.T) {
	st := newFakeStore()
	r := NewReceiver(st)

	c := successFrame()
	c.FireID = "f-ghost"
	assert.NoError(t, r.Handle(context.Background(), c))
}

func TestHandleUnknownStatusDiscarded(t *testing.T) {
	st := newFakeStore()
	seed(st)
	r := NewReceiver(st)

	c := successFrame()
	c.Status = "maybe"
	require.NoError(t, r.Handle(context.Background(), c))
	assert.Equal(t, models.FireSent, st.fires["f-1"].Status)
}

func TestHandleConfirmationAfterSweeperTimeout(t *testing.T) {
	st := newFakeStore()
	seed(st)
	st.fires["f-1"].Status = models.FireTimeout
	r := NewReceiver(st)

	// terminal wins; the late confirmation is dropped without error
	require.NoError(t, r.Handle(context.Background(), successFrame()))
	assert.Equal(t, models.FireTimeout, st.fires["f-1"].Status)
}
