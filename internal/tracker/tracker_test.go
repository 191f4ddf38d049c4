package tracker_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdwilson/roibot/internal/eventbus"
	"github.com/sdwilson/roibot/internal/grid"
	"github.com/sdwilson/roibot/internal/inventory"
	"github.com/sdwilson/roibot/internal/orders"
	"github.com/sdwilson/roibot/internal/pathing"
	"github.com/sdwilson/roibot/internal/robot"
	"github.com/sdwilson/roibot/internal/tracker"
)

func newFixture(t *testing.T) (*robot.Controller, *orders.Order, *eventbus.Bus, *tracker.Tracker) {
	t.Helper()
	g := grid.Default()
	bus := eventbus.New(nil, nil)
	store := inventory.New(nil, nil)
	store.Put(inventory.Item{ID: "ITEM_A1", Location: grid.Coordinate{Aisle: 5, Rack: 10}, Quantity: 1})
	store.Put(inventory.Item{ID: "ITEM_B1", Location: grid.Coordinate{Aisle: 7, Rack: 2}, Quantity: 1})

	engine := pathing.NewEngine(g, 500*time.Millisecond, 7.0)
	c := robot.NewController("robot-1", g, engine, store, bus, robot.Config{
		Speed: 19.0 / 7.0, PickDuration: 3 * time.Second, MaxItems: 5,
	}, nil)
	tr := tracker.New(bus, g.Packout, 100, nil)

	order := orders.New([]string{"ITEM_A1"})
	require.NoError(t, c.Assign(order))
	tr.Track(order)

	return c, order, bus, tr
}

func TestCompletionDetectedOnceItemsCollectedAndRobotAtPackout(t *testing.T) {
	c, order, bus, tr := newFixture(t)

	var completedCount int
	bus.Subscribe(eventbus.Predicate{}, func(e eventbus.Event) {
		if e.Type == eventbus.OrderCompleted {
			completedCount++
		}
	})

	for i := 0; i < 100000 && c.State() != robot.Idle; i++ {
		c.Update(10 * time.Millisecond)
		bus.Drain()
	}
	bus.Drain()

	require.Equal(t, 1, completedCount, "ORDER_COMPLETED must fire exactly once")
	require.Equal(t, orders.Completed, order.Status)

	snap := tr.Snapshot()
	entry, ok := snap[order.ID]
	require.True(t, ok)
	require.Equal(t, orders.Completed, entry.Status)
	require.Equal(t, 26, entry.Distance)
}

func TestCompletionNotDetectedWhileRobotStillMoving(t *testing.T) {
	c, _, bus, _ := newFixture(t)

	var completed bool
	bus.Subscribe(eventbus.Predicate{}, func(e eventbus.Event) {
		if e.Type == eventbus.OrderCompleted {
			completed = true
		}
	})

	// Drive only a few ticks: item likely not yet collected nor robot home.
	for i := 0; i < 5; i++ {
		c.Update(10 * time.Millisecond)
		bus.Drain()
	}

	require.False(t, completed)
}

func TestCancelledOrderNeverEmitsCompleted(t *testing.T) {
	c, order, bus, _ := newFixture(t)

	var completed, cancelled bool
	bus.Subscribe(eventbus.Predicate{}, func(e eventbus.Event) {
		switch e.Type {
		case eventbus.OrderCompleted:
			completed = true
		case eventbus.OrderCancelled:
			cancelled = true
		}
	})

	c.Update(50 * time.Millisecond)
	bus.Drain()
	c.Cancel(order.ID)

	for i := 0; i < 100000 && c.State() != robot.Idle; i++ {
		c.Update(10 * time.Millisecond)
		bus.Drain()
	}
	bus.Drain()

	require.True(t, cancelled)
	require.False(t, completed)
	require.Equal(t, orders.Cancelled, order.Status)
}

func TestTrackingUnknownOrderIDIsANoOp(t *testing.T) {
	bus := eventbus.New(nil, nil)
	tr := tracker.New(bus, grid.Coordinate{Aisle: 1, Rack: 1}, 10, nil)

	bus.Emit(eventbus.Event{
		Type: eventbus.ItemCollected, Priority: eventbus.DefaultPriority(eventbus.ItemCollected),
		Payload: robot.ItemCollectedPayload{OrderID: "does-not-exist", ItemID: "ITEM_A1", RobotID: "robot-1"},
	})
	bus.Drain()

	require.Empty(t, tr.Snapshot())
}
