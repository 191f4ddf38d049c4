package robot

import (
	"time"

	"github.com/sdwilson/roibot/internal/apperrors"
	"github.com/sdwilson/roibot/internal/eventbus"
	"github.com/sdwilson/roibot/internal/grid"
	"github.com/sdwilson/roibot/internal/inventory"
	"github.com/sdwilson/roibot/internal/obslog"
	"github.com/sdwilson/roibot/internal/orders"
	"github.com/sdwilson/roibot/internal/pathing"
)

// Position is a fractional coordinate used only for rendering/interpolation
// (spec.md §4.5: "rendering may use fractional coords, but logic ...
// triggers on integer crossings").
type Position struct {
	Aisle float64
	Rack  float64
}

// Config configures a Controller's physical parameters, per spec.md §6's
// "robot" section.
type Config struct {
	Speed        float64 // grid-units/s
	PickDuration time.Duration
	MaxItems     int
}

// Controller is the single warehouse robot's state machine.
type Controller struct {
	id    string
	grid  *grid.Grid
	paths *pathing.Engine
	store *inventory.Store
	bus   *eventbus.Bus
	cfg   Config
	log   *obslog.Logger

	state    State
	position grid.Coordinate // last integer-crossed coordinate

	order        *orders.Order
	tour         pathing.Tour
	segmentIdx   int // index into tour.Segments currently being walked
	pathCursor   int // index into the active segment's Path; robot sits between Path[pathCursor] and Path[pathCursor+1]
	edgeProgress float64 // fraction of the current edge traversed, in [0,1)

	pickTimer     time.Duration
	pickItemID    string
	cancelPending bool

	lastDirection   pathing.Direction
	sinceLastChange time.Duration
}

// NewController constructs a Controller at the grid's packout coordinate,
// IDLE, with the direction-cooldown clock already elapsed so the first
// order's first leg is free to pick either direction. log may be nil, in
// which case a discarding logger is used.
func NewController(id string, g *grid.Grid, paths *pathing.Engine, store *inventory.Store, bus *eventbus.Bus, cfg Config, log *obslog.Logger) *Controller {
	if log == nil {
		log = obslog.Noop()
	}
	return &Controller{
		id: id, grid: g, paths: paths, store: store, bus: bus, cfg: cfg, log: log,
		state: Idle, position: g.Packout,
		lastDirection: pathing.Forward, sinceLastChange: 24 * time.Hour,
	}
}

// ID returns the robot's identifier.
func (c *Controller) ID() string { return c.id }

// IsIdle reports whether the robot can accept a new order.
func (c *Controller) IsIdle() bool { return c.state == Idle }

// State returns the robot's current lifecycle state.
func (c *Controller) State() State { return c.state }

// Position returns the robot's current integer-snapped coordinate.
func (c *Controller) Position() grid.Coordinate { return c.position }

// CurrentOrder returns the order the robot is currently executing, or nil
// while IDLE. The integration layer uses this to hand the freshly
// assigned order to the status tracker, since the Assigner only sees
// order IDs pass through ORDER_ASSIGNED, not the *orders.Order itself.
func (c *Controller) CurrentOrder() *orders.Order { return c.order }

// InterpolatedPosition returns the robot's fractional position for
// rendering, per spec.md §4.5's interpolation note.
func (c *Controller) InterpolatedPosition() Position {
	if c.state != MovingToItem && c.state != Returning {
		return Position{Aisle: float64(c.position.Aisle), Rack: float64(c.position.Rack)}
	}
	path := c.activePath()
	if path == nil || c.pathCursor+1 >= len(path) {
		return Position{Aisle: float64(c.position.Aisle), Rack: float64(c.position.Rack)}
	}
	from, to := path[c.pathCursor], path[c.pathCursor+1]
	return Position{
		Aisle: float64(from.Aisle) + float64(to.Aisle-from.Aisle)*c.edgeProgress,
		Rack:  float64(from.Rack) + float64(to.Rack-from.Rack)*c.edgeProgress,
	}
}

// Assign hands a new order to the robot, per spec.md §4.5:
// IDLE --assign(order)--> MOVING_TO_ITEM. It validates the held-items
// invariant and every item's existence (spec.md §4.6's
// reserve_for_order), plans the full tour, and begins walking it.
func (c *Controller) Assign(order *orders.Order) error {
	if c.state != Idle {
		return apperrors.Invariant("robot.not_idle", "robot is not IDLE")
	}
	if len(order.Items) > c.cfg.MaxItems {
		return apperrors.Invariant("robot.held_items_exceeded", "order exceeds max held items")
	}
	if !c.store.ReserveForOrder(order.Items) {
		return apperrors.Operational("robot.items_unavailable", "one or more order items do not exist")
	}

	itemCoords := make([]grid.Coordinate, len(order.Items))
	for i, id := range order.Items {
		item, _ := c.store.Get(id)
		itemCoords[i] = item.Location
	}

	tour, err := c.paths.PlanTour(c.position, itemCoords, c.grid.Packout, c.lastDirection, c.sinceLastChange, c.cfg.PickDuration)
	if err != nil {
		return apperrors.Operational("robot.plan_failed", "path planning failed: "+err.Error())
	}

	now := time.Now()
	order.Status = orders.InProgress
	order.AssignedAt = &now
	order.AssignedRobot = c.id

	c.order = order
	c.tour = tour
	c.segmentIdx = 0
	c.pathCursor = 0
	c.edgeProgress = 0
	c.log.WithFields(obslog.Fields{"robot_id": c.id, "order_id": order.ID, "item_count": len(order.Items)}).
		Info("robot starting order")
	c.transition(MovingToItem)
	return nil
}

// Cancel marks the in-progress order for cancellation. Per spec.md §4.5(c),
// the robot completes its current segment to the nearest integer
// coordinate, then routes directly to packout; the order ends CANCELLED.
// It is a no-op if no order matching orderID is in progress.
func (c *Controller) Cancel(orderID string) {
	if c.order == nil || c.order.ID != orderID || c.state == Idle {
		return
	}
	c.log.WithFields(obslog.Fields{"robot_id": c.id, "order_id": orderID}).Info("order cancellation requested")
	c.cancelPending = true
}

// Update advances the robot by dt, per spec.md §4.5's per-tick behavior.
func (c *Controller) Update(dt time.Duration) {
	c.sinceLastChange += dt
	switch c.state {
	case MovingToItem, Returning:
		c.advance(dt)
	case CollectingItem:
		c.pickTimer -= dt
		if c.pickTimer <= 0 {
			c.completePick()
		}
	case Idle:
		// no-op
	}
}

func (c *Controller) activePath() []grid.Coordinate {
	if c.segmentIdx >= len(c.tour.Segments) {
		return nil
	}
	return c.tour.Segments[c.segmentIdx].Path
}

// advance walks the robot forward by speed*dt grid-units along the active
// path, snapping and emitting ROBOT_MOVED on every integer crossing, and
// handling any segment/pick/cancellation transition reached along the way.
func (c *Controller) advance(dt time.Duration) {
	remaining := c.cfg.Speed * dt.Seconds()
	for remaining > 0 {
		path := c.activePath()
		if path == nil || c.pathCursor+1 >= len(path) {
			if !c.onSegmentComplete() {
				return // transitioned out of movement (picking, or finished)
			}
			continue
		}

		edgeRemaining := 1.0 - c.edgeProgress
		if remaining < edgeRemaining {
			c.edgeProgress += remaining
			return
		}

		remaining -= edgeRemaining
		c.pathCursor++
		c.edgeProgress = 0
		c.crossInto(path[c.pathCursor])

		// Cancellation takes effect at the nearest integer coordinate
		// (spec.md §4.5(c)): redirect to packout now rather than
		// continuing toward the original segment target. A robot already
		// RETURNING is headed to packout and keeps its path.
		if c.cancelPending && c.state != Returning {
			c.beginReturnForCancellation()
			return
		}
	}
}

func (c *Controller) crossInto(next grid.Coordinate) {
	from := c.position
	c.position = next
	if c.order != nil {
		c.order.TotalDistance += grid.Distance(from, next)
	}
	c.log.WithFields(obslog.Fields{"robot_id": c.id, "aisle": next.Aisle, "rack": next.Rack}).Debug("robot moved")
	c.emit(eventbus.RobotMoved, RobotMovedPayload{RobotID: c.id, From: from, To: next})
}

// onSegmentComplete runs when the robot has reached the end of the active
// segment's path. It returns true if the caller should keep advancing, or
// false if movement has stopped for this tick; every branch stops movement
// (entered COLLECTING_ITEM, re-armed a return for cancellation, or
// returned to IDLE), so it returns false.
func (c *Controller) onSegmentComplete() bool {
	if segDir := c.tour.Segments[c.segmentIdx].Direction; segDir != c.lastDirection {
		c.lastDirection = segDir
		c.sinceLastChange = 0
	}

	if c.cancelPending && c.state != Returning {
		return c.beginReturnForCancellation()
	}

	isFinalSegment := c.segmentIdx == len(c.tour.Segments)-1
	if isFinalSegment {
		c.arriveAtPackout()
		return false
	}

	// Arrived at an item coordinate: begin the pick.
	c.pickItemID = c.order.Items[c.segmentIdx]
	c.pickTimer = c.cfg.PickDuration
	c.transition(CollectingItem)
	return false
}

func (c *Controller) completePick() {
	itemID := c.pickItemID
	if item, ok := c.store.Get(itemID); !ok || item.Quantity <= 0 {
		c.log.WithFields(obslog.Fields{"robot_id": c.id, "order_id": c.order.ID, "item_id": itemID}).
			Warn("pick failed, item unavailable")
		c.emit(eventbus.PickFailed, PickFailedPayload{OrderID: c.order.ID, ItemID: itemID, Reason: "item_unavailable"})
	} else {
		_ = c.store.ApplyCollection(c.order.ID, itemID)
		c.order.Collected[itemID] = true
		c.log.WithFields(obslog.Fields{"robot_id": c.id, "order_id": c.order.ID, "item_id": itemID}).
			Debug("item collected")
		c.emit(eventbus.ItemCollected, ItemCollectedPayload{OrderID: c.order.ID, ItemID: itemID, RobotID: c.id})
	}

	c.segmentIdx++
	c.pathCursor = 0
	c.edgeProgress = 0

	if c.cancelPending {
		c.beginReturnForCancellation()
		return
	}
	if c.segmentIdx == len(c.tour.Segments)-1 {
		c.transition(Returning)
		return
	}
	c.transition(MovingToItem)
}

// beginReturnForCancellation routes directly to packout from the current
// position, discarding the remainder of the original tour, per spec.md
// §4.5(c). It returns false (movement has been re-armed for the next
// Update call rather than continuing within this one).
func (c *Controller) beginReturnForCancellation() bool {
	path, err := c.paths.PlanDirected(c.position, c.grid.Packout, c.lastDirection, true)
	if err != nil {
		// Packout is always reachable from any grid cell under either
		// direction once cross-aisle moves are unrestricted; this would
		// indicate a broken grid/engine pairing, not a reachable runtime
		// condition.
		path = []grid.Coordinate{c.position, c.grid.Packout}
	}
	c.tour = pathing.Tour{Segments: []pathing.Segment{{Path: path, Direction: c.lastDirection}}}
	c.segmentIdx = 0
	c.pathCursor = 0
	c.edgeProgress = 0
	c.transition(Returning)
	return false
}

func (c *Controller) arriveAtPackout() {
	order := c.order
	cancelled := c.cancelPending
	c.cancelPending = false
	c.order = nil
	c.transition(Idle)

	if order == nil {
		return
	}
	if cancelled {
		order.Status = orders.Cancelled
		c.log.WithFields(obslog.Fields{"robot_id": c.id, "order_id": order.ID}).Info("order cancelled")
		c.emit(eventbus.OrderCancelled, orders.OrderEndedPayload{OrderID: order.ID, Reason: "cancelled"})
	}
	// A non-cancelled completion is detected and announced by the status
	// tracker (spec.md §4.8), which correlates this ROBOT_STATE_CHANGED
	// with the order's collected set rather than the robot asserting
	// completion unilaterally.
}

// Fail aborts the active order due to an invalid path mid-execution
// (spec.md §4.5(b)): the order ends FAILED and the robot returns to
// packout empty, discarding whatever segment it was on.
func (c *Controller) Fail(reason string) {
	if c.order == nil {
		return
	}
	order := c.order
	order.Status = orders.Failed
	c.order = nil
	c.log.WithFields(obslog.Fields{"robot_id": c.id, "order_id": order.ID, "reason": reason}).
		Warn("order aborted")
	c.emit(eventbus.OrderFailed, orders.OrderEndedPayload{OrderID: order.ID, Reason: reason})

	path, err := c.paths.PlanDirected(c.position, c.grid.Packout, c.lastDirection, true)
	if err != nil {
		path = []grid.Coordinate{c.position, c.grid.Packout}
	}
	c.tour = pathing.Tour{Segments: []pathing.Segment{{Path: path, Direction: c.lastDirection}}}
	c.segmentIdx = 0
	c.pathCursor = 0
	c.edgeProgress = 0
	c.transition(Returning)
}

func (c *Controller) transition(next State) {
	prev := c.state
	c.state = next
	if prev == next {
		return
	}
	c.log.WithFields(obslog.Fields{"robot_id": c.id, "from": prev, "to": next}).Debug("robot state changed")
	c.emit(eventbus.RobotStateChanged, RobotStateChangedPayload{RobotID: c.id, From: prev, To: next})
}

func (c *Controller) emit(t eventbus.Type, payload any) {
	if c.bus == nil {
		return
	}
	c.bus.Emit(eventbus.Event{
		Type: t, Priority: eventbus.DefaultPriority(t),
		Payload: payload, Timestamp: time.Now(), Source: "robot:" + c.id,
	})
}

// RobotMovedPayload is ROBOT_MOVED's payload.
type RobotMovedPayload struct {
	RobotID  string
	From, To grid.Coordinate
}

// RobotStateChangedPayload is ROBOT_STATE_CHANGED's payload.
type RobotStateChangedPayload struct {
	RobotID  string
	From, To State
}

// ItemCollectedPayload is ITEM_COLLECTED's payload.
type ItemCollectedPayload struct {
	OrderID, ItemID, RobotID string
}

// PickFailedPayload is PICK_FAILED's payload.
type PickFailedPayload struct {
	OrderID, ItemID, Reason string
}
