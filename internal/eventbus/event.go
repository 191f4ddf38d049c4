// Package eventbus implements the priority/FIFO event bus that drives all
// cross-component communication, per spec.md §4.3 and §6. HIGH-priority
// events drain before MEDIUM, before LOW; within a priority class,
// dispatch order is FIFO.
package eventbus

import "time"

// Priority is the event bus's dispatch class. Zero value is HIGH so an
// accidentally zero-valued Priority degrades to "drain first" rather than
// silently starving.
type Priority int

const (
	HIGH Priority = iota
	MEDIUM
	LOW
)

func (p Priority) String() string {
	switch p {
	case HIGH:
		return "HIGH"
	case MEDIUM:
		return "MEDIUM"
	case LOW:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// Type is the closed enumeration of event types from spec.md §6's event
// catalog.
type Type string

const (
	SimStarted Type = "SIM_STARTED"
	SimStopped Type = "SIM_STOPPED"
	SimPaused  Type = "SIM_PAUSED"
	SimResumed Type = "SIM_RESUMED"

	Tick Type = "TICK"

	OrderCreated   Type = "ORDER_CREATED"
	OrderAssigned  Type = "ORDER_ASSIGNED"
	OrderCompleted Type = "ORDER_COMPLETED"
	OrderCancelled Type = "ORDER_CANCELLED"
	OrderFailed    Type = "ORDER_FAILED"

	RobotStateChanged Type = "ROBOT_STATE_CHANGED"
	RobotMoved        Type = "ROBOT_MOVED"

	ItemCollected Type = "ITEM_COLLECTED"
	PickFailed    Type = "PICK_FAILED"

	InventoryUpdated Type = "INVENTORY_UPDATED"

	PerfWarning Type = "PERF_WARNING"
)

// DefaultPriority returns the priority spec.md's event catalog assigns to
// t. Unknown types default to MEDIUM, matching the catalog's most common
// class.
func DefaultPriority(t Type) Priority {
	switch t {
	case SimStarted, SimStopped, SimPaused, SimResumed, PerfWarning:
		return HIGH
	case Tick, RobotMoved, InventoryUpdated:
		return LOW
	default:
		return MEDIUM
	}
}

// Event is one typed message travelling through the bus, per spec.md §3's
// "{type, payload, priority, timestamp, source}".
type Event struct {
	Type      Type
	Payload   any
	Priority  Priority
	Timestamp time.Time
	Source    string

	seq uint64 // assigned by the bus at Emit time, establishes FIFO order within a priority
}

// Seq returns the bus-assigned sequence number used to break ties within a
// priority class. Zero before the event has been emitted.
func (e Event) Seq() uint64 { return e.seq }
