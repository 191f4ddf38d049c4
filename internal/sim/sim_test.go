package sim_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdwilson/roibot/internal/clock"
	"github.com/sdwilson/roibot/internal/config"
	"github.com/sdwilson/roibot/internal/orders"
	"github.com/sdwilson/roibot/internal/robot"
	"github.com/sdwilson/roibot/internal/sim"
)

func newTestSim(t *testing.T) *sim.Sim {
	t.Helper()
	s, err := sim.New(config.Default(), "error")
	require.NoError(t, err)
	return s
}

func TestNewWiresEveryComponent(t *testing.T) {
	s := newTestSim(t)
	require.NotNil(t, s.Bus)
	require.NotNil(t, s.Clock)
	require.NotNil(t, s.Store)
	require.NotNil(t, s.Robot)
	require.Equal(t, clock.Stopped, s.Clock.State())
}

func TestCommandStartStopPauseResume(t *testing.T) {
	s := newTestSim(t)

	status, err := s.Command("start", 0)
	require.NoError(t, err)
	require.Equal(t, clock.Running, status.ClockState)

	status, err = s.Command("pause", 0)
	require.NoError(t, err)
	require.Equal(t, clock.Paused, status.ClockState)

	status, err = s.Command("resume", 0)
	require.NoError(t, err)
	require.Equal(t, clock.Running, status.ClockState)

	status, err = s.Command("stop", 0)
	require.NoError(t, err)
	require.Equal(t, clock.Stopped, status.ClockState)
}

func TestCommandSpeedClampsOutOfRange(t *testing.T) {
	s := newTestSim(t)
	status, err := s.Command("speed", 99.0)
	require.NoError(t, err)
	require.Equal(t, clock.MaxSpeed, status.Speed)
}

func TestCommandUnknownReturnsError(t *testing.T) {
	s := newTestSim(t)
	_, err := s.Command("not-a-real-command", 0)
	require.Error(t, err)
}

// End-to-end: a manually-assigned order flows through robot execution,
// tracker completion detection, and into the analytics snapshot.
func TestOrderLifecycleFeedsAnalyticsSnapshot(t *testing.T) {
	s := newTestSim(t)

	ids := s.Store.IDs()
	require.NotEmpty(t, ids)
	order := orders.New([]string{ids[0]})
	require.NoError(t, s.Robot.Assign(order))
	s.Tracker.Track(order)

	for i := 0; i < 200000 && s.Robot.State() != robot.Idle; i++ {
		s.Robot.Update(10 * time.Millisecond)
		s.Analytics.Tick(10*time.Millisecond, s.Queue.Size())
		s.Bus.Drain()
	}

	require.Equal(t, orders.Completed, order.Status)
	snap := s.Analytics.Snapshot()
	require.Equal(t, 1, snap.CompletedInWindow)
}

func TestShutdownDrainsQueueAndStopsClock(t *testing.T) {
	s := newTestSim(t)
	require.NoError(t, s.Queue.Enqueue(orders.New([]string{"ITEM_A1"})))
	s.Command("start", 0)

	s.Shutdown()

	require.Equal(t, clock.Stopped, s.Clock.State())
	require.Equal(t, 0, s.Queue.Size())
}
