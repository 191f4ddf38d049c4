package orders_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sdwilson/roibot/internal/apperrors"
	"github.com/sdwilson/roibot/internal/eventbus"
	"github.com/sdwilson/roibot/internal/grid"
	"github.com/sdwilson/roibot/internal/inventory"
	"github.com/sdwilson/roibot/internal/orders"
)

func TestQueueFIFO(t *testing.T) {
	q := orders.NewQueue(10)
	a := orders.New([]string{"ITEM_A1"})
	b := orders.New([]string{"ITEM_A2"})
	require.NoError(t, q.Enqueue(a))
	require.NoError(t, q.Enqueue(b))

	got, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, a.ID, got.ID)
}

// S4 — queue overflow.
func TestQueueOverflowRejectsExplicitly(t *testing.T) {
	q := orders.NewQueue(1)
	require.NoError(t, q.Enqueue(orders.New([]string{"ITEM_A1"})))

	err := q.Enqueue(orders.New([]string{"ITEM_A2"}))
	require.Error(t, err)
	kind, ok := apperrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, apperrors.KindSaturation, kind)
	require.Equal(t, 1, q.Size(), "rejected order must not be silently queued")
}

func TestQueueRemoveByID(t *testing.T) {
	q := orders.NewQueue(10)
	o := orders.New([]string{"ITEM_A1"})
	require.NoError(t, q.Enqueue(o))
	require.True(t, q.Remove(o.ID))
	require.Equal(t, 0, q.Size())
	require.False(t, q.Remove(o.ID), "removing twice must fail the second time")
}

func TestQueueSnapshotIsFIFOOrder(t *testing.T) {
	q := orders.NewQueue(10)
	a := orders.New([]string{"ITEM_A1"})
	b := orders.New([]string{"ITEM_A2"})
	require.NoError(t, q.Enqueue(a))
	require.NoError(t, q.Enqueue(b))

	snap := q.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, a.ID, snap[0].ID)
	require.Equal(t, b.ID, snap[1].ID)
}

func TestGeneratorEmitsOrderCreatedOnCadence(t *testing.T) {
	bus := eventbus.New(nil, nil)
	store := inventory.Seed(nil, grid.Default(), 1, nil)
	q := orders.NewQueue(50)
	g := orders.NewGenerator(bus, q, store, orders.GeneratorConfig{
		Interval: 30 * time.Second, MinItems: 1, MaxItems: 4, Seed: 99,
	}, nil)

	var created int
	bus.Subscribe(eventbus.Predicate{}, func(e eventbus.Event) {
		if e.Type == eventbus.OrderCreated {
			created++
		}
	})

	g.Update(29 * time.Second)
	bus.Drain()
	require.Equal(t, 0, created, "must not emit before the interval elapses")

	g.Update(2 * time.Second)
	bus.Drain()
	require.Equal(t, 1, created)
	require.Equal(t, 1, q.Size())
}

func TestGeneratorBacksOffOnQueueFull(t *testing.T) {
	bus := eventbus.New(nil, nil)
	store := inventory.Seed(nil, grid.Default(), 1, nil)
	q := orders.NewQueue(1)
	require.NoError(t, q.Enqueue(orders.New([]string{"ITEM_A1"})))
	g := orders.NewGenerator(bus, q, store, orders.GeneratorConfig{
		Interval: time.Second, MinItems: 1, MaxItems: 1, Seed: 1,
	}, nil)

	var created int
	bus.Subscribe(eventbus.Predicate{}, func(e eventbus.Event) {
		if e.Type == eventbus.OrderCreated {
			created++
		}
	})

	g.Update(time.Second)
	bus.Drain()

	require.Equal(t, 0, created)
	require.Equal(t, 1, g.BackoffCount())
}

type fakeRobot struct {
	idle     bool
	assigned *orders.Order
}

func (f *fakeRobot) IsIdle() bool { return f.idle }
func (f *fakeRobot) ID() string   { return "robot-1" }
func (f *fakeRobot) Assign(o *orders.Order) error {
	f.assigned = o
	f.idle = false
	return nil
}

func TestAssignerDequeuesHeadOnlyWhenRobotIdle(t *testing.T) {
	bus := eventbus.New(nil, nil)
	q := orders.NewQueue(10)
	a := orders.New([]string{"ITEM_A1"})
	b := orders.New([]string{"ITEM_A2"})
	require.NoError(t, q.Enqueue(a))
	require.NoError(t, q.Enqueue(b))

	robot := &fakeRobot{idle: false}
	assigner := orders.NewAssigner(bus, q, robot, nil)

	assigner.Update(time.Second)
	require.Nil(t, robot.assigned, "must not assign while robot is busy")
	require.Equal(t, 2, q.Size())

	robot.idle = true
	assigner.Update(time.Second)
	require.NotNil(t, robot.assigned)
	require.Equal(t, a.ID, robot.assigned.ID, "assigner takes only the head order")
	require.Equal(t, 1, q.Size())
}

// S-pause — a dt=0 tick is how the Scheduler delivers PAUSED (spec.md
// §4.4), and spec.md §8 requires no state mutation in any component on
// such a tick, including the assigner's.
func TestAssignerDoesNotAssignOnPausedZeroDtTick(t *testing.T) {
	bus := eventbus.New(nil, nil)
	q := orders.NewQueue(10)
	a := orders.New([]string{"ITEM_A1"})
	require.NoError(t, q.Enqueue(a))

	robot := &fakeRobot{idle: true}
	assigner := orders.NewAssigner(bus, q, robot, nil)

	assigner.Update(0)
	require.Nil(t, robot.assigned, "a paused (dt=0) tick must not assign")
	require.Equal(t, 1, q.Size())

	assigner.Update(time.Second)
	require.NotNil(t, robot.assigned, "a resumed tick assigns normally")
}

func TestOrderAllCollected(t *testing.T) {
	o := orders.New([]string{"ITEM_A1", "ITEM_A2"})
	require.False(t, o.AllCollected())
	o.Collected["ITEM_A1"] = true
	require.False(t, o.AllCollected())
	o.Collected["ITEM_A2"] = true
	require.True(t, o.AllCollected())
}
