// Package orders implements the Order lifecycle, the bounded FIFO queue,
// the periodic generator, and the single assigner described in
// spec.md §4.7. The queue generalizes a single-robot task
// channel (robotTask / taskQueue in
// b-librobot/librobot/librobot_robot.go) from a bare, uninspectable
// `chan *robotTask` into the bounded, inspectable queue the order
// lifecycle requires (size, remove, snapshot — none of which a channel
// alone can provide).
package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/sdwilson/roibot/internal/eventbus"
)

// Status is an Order's lifecycle state, per spec.md §3.
type Status string

const (
	Pending    Status = "PENDING"
	InProgress Status = "IN_PROGRESS"
	Completed  Status = "COMPLETED"
	Failed     Status = "FAILED"
	Cancelled  Status = "CANCELLED"
)

// Order is one picking order, per spec.md §3.
type Order struct {
	ID            string
	Items         []string
	CreatedAt     time.Time
	AssignedAt    *time.Time
	CompletedAt   *time.Time
	Status        Status
	AssignedRobot string
	Collected     map[string]bool
	TotalDistance int
}

// New constructs a PENDING order with a fresh id, using the same
// google/uuid-based id scheme as the rest of the simulation.
func New(items []string) *Order {
	return &Order{
		ID:        uuid.NewString(),
		Items:     items,
		CreatedAt: time.Now(),
		Status:    Pending,
		Collected: make(map[string]bool, len(items)),
	}
}

// AllCollected reports whether every item on the order has been collected.
func (o *Order) AllCollected() bool {
	for _, id := range o.Items {
		if !o.Collected[id] {
			return false
		}
	}
	return true
}

// emitOrderEvent is a small helper shared by the generator and assigner
// for ORDER_CREATED and ORDER_ASSIGNED, stamping the catalog priority,
// timestamp and source onto payload.
func emitOrderEvent(bus *eventbus.Bus, t eventbus.Type, source string, payload any) {
	if bus == nil {
		return
	}
	bus.Emit(eventbus.Event{
		Type: t, Priority: eventbus.DefaultPriority(t),
		Payload: payload, Timestamp: time.Now(), Source: source,
	})
}

// OrderCreatedPayload is ORDER_CREATED's payload.
type OrderCreatedPayload struct {
	OrderID string
	Items   []string
}

// OrderAssignedPayload is ORDER_ASSIGNED's payload.
type OrderAssignedPayload struct {
	OrderID string
	RobotID string
}

// OrderCompletedPayload is ORDER_COMPLETED's payload.
type OrderCompletedPayload struct {
	OrderID  string
	Distance int
	Duration time.Duration
}

// OrderEndedPayload is ORDER_CANCELLED/ORDER_FAILED's shared payload shape.
type OrderEndedPayload struct {
	OrderID string
	Reason  string
}
