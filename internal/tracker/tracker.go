// Package tracker implements the Status Tracker described in spec.md
// §4.8: per-order lifecycle bookkeeping and exactly-once ORDER_COMPLETED
// detection. It has no close prior art elsewhere in this codebase (a
// single-robot, single-task simulator has no multi-stage order concept on
// its own), so it is grounded directly on spec.md §4.8's subscription
// list and completion rule.
package tracker

import (
	"time"

	"github.com/sdwilson/roibot/internal/eventbus"
	"github.com/sdwilson/roibot/internal/grid"
	"github.com/sdwilson/roibot/internal/obslog"
	"github.com/sdwilson/roibot/internal/orders"
	"github.com/sdwilson/roibot/internal/robot"
)

// Entry is the per-order lifecycle record spec.md §4.8 describes.
type Entry struct {
	Status        orders.Status
	Collected     map[string]bool
	StartedAt     time.Time
	LastEventAt   time.Time
	CompletedAt   time.Time
	Distance      int
	totalItems    int
	order         *orders.Order
}

// Tracker subscribes to ITEM_COLLECTED, ROBOT_STATE_CHANGED and
// ROBOT_MOVED, and emits ORDER_COMPLETED exactly once per order when its
// items are all collected and the robot has returned to packout.
type Tracker struct {
	bus     *eventbus.Bus
	packout grid.Coordinate

	entries map[string]*Entry
	// robotAtPackout tracks each robot's last known position against
	// packout, so a ROBOT_STATE_CHANGED to IDLE can be correlated with
	// "has this robot actually returned to packout".
	robotAtPackout map[string]bool

	retention []string // completed order ids, oldest first, for the rolling window
	window    int       // max retained completed entries before eviction

	log *obslog.Logger
}

// New constructs a Tracker. window bounds how many completed orders are
// retained for the analytics rolling window before eviction (spec.md
// §4.8's "Retains completed orders for the analytics rolling window, then
// evicts"). log may be nil, in which case a discarding logger is used.
func New(bus *eventbus.Bus, packout grid.Coordinate, window int, log *obslog.Logger) *Tracker {
	if log == nil {
		log = obslog.Noop()
	}
	t := &Tracker{
		bus: bus, packout: packout,
		entries:        make(map[string]*Entry),
		robotAtPackout: make(map[string]bool),
		window:         window,
		log:            log,
	}
	bus.Subscribe(eventbus.Predicate{}, t.handle)
	return t
}

// Track begins tracking a newly-assigned order.
func (t *Tracker) Track(order *orders.Order) {
	t.entries[order.ID] = &Entry{
		Status: order.Status, Collected: make(map[string]bool),
		StartedAt: time.Now(), LastEventAt: time.Now(),
		totalItems: len(order.Items), order: order,
	}
}

func (t *Tracker) handle(e eventbus.Event) {
	switch e.Type {
	case eventbus.ItemCollected:
		p := e.Payload.(robot.ItemCollectedPayload)
		t.onItemCollected(p.OrderID, p.ItemID)
	case eventbus.RobotStateChanged:
		p := e.Payload.(robot.RobotStateChangedPayload)
		t.onRobotStateChanged(p)
	case eventbus.RobotMoved:
		p := e.Payload.(robot.RobotMovedPayload)
		t.robotAtPackout[p.RobotID] = p.To.Equal(t.packout)
	}
}

func (t *Tracker) onItemCollected(orderID, itemID string) {
	entry, ok := t.entries[orderID]
	if !ok {
		return
	}
	entry.Collected[itemID] = true
	entry.LastEventAt = time.Now()
	t.maybeComplete(orderID, entry)
}

func (t *Tracker) onRobotStateChanged(p robot.RobotStateChangedPayload) {
	if p.To != robot.Idle {
		return
	}
	t.robotAtPackout[p.RobotID] = true
	for orderID, entry := range t.entries {
		if entry.order.AssignedRobot == p.RobotID {
			entry.LastEventAt = time.Now()
			t.maybeComplete(orderID, entry)
		}
	}
}

// maybeComplete emits ORDER_COMPLETED exactly once, when every item is
// collected and the assigned robot has returned to packout (spec.md
// §4.8). It is a no-op for orders that ended CANCELLED or FAILED.
func (t *Tracker) maybeComplete(orderID string, entry *Entry) {
	if entry.Status == orders.Completed {
		return
	}
	if entry.order.Status == orders.Cancelled || entry.order.Status == orders.Failed {
		entry.Status = entry.order.Status
		t.log.WithFields(obslog.Fields{"order_id": orderID, "status": entry.Status}).Debug("order tracking ended")
		t.evictEventually(orderID)
		return
	}
	if len(entry.Collected) < entry.totalItems {
		return
	}
	if !t.robotAtPackout[entry.order.AssignedRobot] {
		return
	}

	entry.Status = orders.Completed
	entry.CompletedAt = time.Now()
	entry.Distance = entry.order.TotalDistance

	entry.order.Status = orders.Completed
	entry.order.CompletedAt = &entry.CompletedAt

	var duration time.Duration
	if entry.order.AssignedAt != nil {
		duration = entry.CompletedAt.Sub(*entry.order.AssignedAt)
	}

	t.log.WithFields(obslog.Fields{"order_id": orderID, "distance": entry.Distance, "duration": duration}).
		Info("order completed")

	if t.bus != nil {
		t.bus.Emit(eventbus.Event{
			Type: eventbus.OrderCompleted, Priority: eventbus.DefaultPriority(eventbus.OrderCompleted),
			Payload: orders.OrderCompletedPayload{OrderID: orderID, Distance: entry.Distance, Duration: duration},
			Timestamp: time.Now(), Source: "tracker",
		})
	}
	t.evictEventually(orderID)
}

func (t *Tracker) evictEventually(orderID string) {
	t.retention = append(t.retention, orderID)
	for len(t.retention) > t.window {
		evict := t.retention[0]
		t.retention = t.retention[1:]
		delete(t.entries, evict)
	}
}

// Snapshot returns a copy of the current tracked entries.
func (t *Tracker) Snapshot() map[string]Entry {
	out := make(map[string]Entry, len(t.entries))
	for id, e := range t.entries {
		out[id] = *e
	}
	return out
}
