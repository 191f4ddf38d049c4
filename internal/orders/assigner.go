package orders

import (
	"time"

	"github.com/sdwilson/roibot/internal/eventbus"
	"github.com/sdwilson/roibot/internal/obslog"
)

// RobotHandle is the minimal surface the Assigner needs from the robot
// controller: whether it's free to take work, and how to hand off an
// order. internal/robot's Controller satisfies this.
type RobotHandle interface {
	IsIdle() bool
	ID() string
	Assign(order *Order) error
}

// Assigner observes robot IDLE + non-empty queue and dequeues exactly one
// order per opportunity, per spec.md §4.7: "Exactly one order is assigned
// at a time; the assigner does not look past the head."
type Assigner struct {
	bus   *eventbus.Bus
	queue *Queue
	robot RobotHandle
	log   *obslog.Logger
}

// NewAssigner constructs an Assigner. log may be nil, in which case a
// discarding logger is used.
func NewAssigner(bus *eventbus.Bus, queue *Queue, robot RobotHandle, log *obslog.Logger) *Assigner {
	if log == nil {
		log = obslog.Noop()
	}
	return &Assigner{bus: bus, queue: queue, robot: robot, log: log}
}

// Update checks for an assignment opportunity this tick. The assigner's
// action is state-triggered rather than time-triggered, but dt still gates
// it: the Scheduler delivers dt=0 while PAUSED (spec.md §4.4), and spec.md
// §8's "Tick with dt=0 (paused): no state mutation in any component" means
// a paused tick must not assign even when the robot is idle and the queue
// is non-empty.
func (a *Assigner) Update(dt time.Duration) {
	if dt == 0 {
		return
	}
	if !a.robot.IsIdle() {
		return
	}
	order, ok := a.queue.Dequeue()
	if !ok {
		return
	}
	if err := a.robot.Assign(order); err != nil {
		// Assignment failed at the boundary (e.g. invariant violation);
		// the order is lost from the queue rather than requeued, since a
		// robot that rejects an order it was just confirmed IDLE for
		// indicates a programming error, not a transient condition.
		a.log.WithFields(obslog.Fields{"order_id": order.ID, "robot_id": a.robot.ID()}).
			Warn("order assignment rejected at robot boundary")
		return
	}
	a.log.WithFields(obslog.Fields{"order_id": order.ID, "robot_id": a.robot.ID()}).
		Info("order assigned")
	emitOrderEvent(a.bus, eventbus.OrderAssigned, "order_assigner", OrderAssignedPayload{
		OrderID: order.ID, RobotID: a.robot.ID(),
	})
}
