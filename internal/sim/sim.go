// Package sim is the Integration Layer described in spec.md §4.11: it
// owns construction order, wires every component's subscriptions to the
// event bus, translates external control commands into Clock actions, and
// coordinates orderly shutdown. It generalizes a prior package-level
// global wiring style (warehouse, robot_map, done in
// c-robotcli/robot_cli.go) into a single owned Sim struct, per spec.md
// §9's "global singletons → owned instances" redesign guidance.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sdwilson/roibot/internal/analytics"
	"github.com/sdwilson/roibot/internal/apperrors"
	"github.com/sdwilson/roibot/internal/clock"
	"github.com/sdwilson/roibot/internal/config"
	"github.com/sdwilson/roibot/internal/eventbus"
	"github.com/sdwilson/roibot/internal/grid"
	"github.com/sdwilson/roibot/internal/inventory"
	"github.com/sdwilson/roibot/internal/obslog"
	"github.com/sdwilson/roibot/internal/orders"
	"github.com/sdwilson/roibot/internal/pathing"
	"github.com/sdwilson/roibot/internal/robot"
	"github.com/sdwilson/roibot/internal/tracker"
)

// InventorySeed fixes the deterministic inventory layout's RNG seed. A
// constant (rather than a config field) because spec.md §4.6 calls the
// 500-item layout itself deterministic, not externally tunable.
const InventorySeed = 1

// TrackerWindow bounds how many completed orders the status tracker
// retains for the analytics rolling window before eviction (spec.md
// §4.8), independent of the analytics engine's own time-based window.
const TrackerWindow = 10000

// Sim is the fully wired simulation core: every internal component plus
// the glue between them. It does not own a CLI, a renderer, or any I/O —
// those live in cmd/roibot and talk to Sim only through its methods and
// the event bus.
type Sim struct {
	Log       *obslog.Logger
	Registry  *config.Live
	Bus       *eventbus.Bus
	Clock     *clock.Scheduler
	Grid      *grid.Grid
	Store     *inventory.Store
	Paths     *pathing.Engine
	Robot     *robot.Controller
	Queue     *orders.Queue
	Gen       *orders.Generator
	Assigner  *orders.Assigner
	Tracker   *tracker.Tracker
	Analytics *analytics.Engine

	// mu guards every tick against concurrent access from a foreground
	// control command, the same coarse-grained-mutex idiom
	// b-librobot/librobot_robot.go uses to guard a robot's whole internal
	// state, generalized here to the whole simulation core, since a
	// single background goroutine now drives ticks continuously once
	// started.
	mu sync.Mutex

	metricsReg *prometheus.Registry

	// trackedItems caches each in-flight order's item list by ID, so the
	// ORDER_COMPLETED handler can hand the analytics engine the item set
	// without Analytics needing to touch the order queue or store itself.
	trackedItems map[string][]string

	stopLoop     chan struct{}
	shutdownOnce sync.Once
}

// New constructs a Sim in construction order Config → Grid → EventBus →
// Clock → Inventory → PathEngine → Robot → Queue → Generator → Tracker →
// Analytics, per spec.md §4.11. It returns a validation error from
// config.Load without constructing anything further.
func New(raw config.Raw, logLevel string) (*Sim, error) {
	reg, err := config.Load(raw)
	if err != nil {
		return nil, err
	}
	live := config.NewLive(reg)
	c := reg.Raw()

	g, err := grid.New(c.Warehouse.Width, c.Warehouse.Height,
		grid.Coordinate{Aisle: c.Warehouse.PackoutAisle, Rack: c.Warehouse.PackoutRack})
	if err != nil {
		return nil, apperrors.Validationf("sim.grid", "invalid warehouse configuration: %v", err)
	}

	log := obslog.New(logLevel)
	metricsReg := prometheus.NewRegistry()
	bus := eventbus.New(log, metricsReg)

	clk := clock.New(bus, c.Timing.TargetFPS, c.Timing.SimulationSpeed)

	store := inventory.Seed(bus, g, InventorySeed, log)

	cooldown := time.Duration(c.Navigation.DirectionCooldown * float64(time.Second))
	paths := pathing.NewEngine(g, cooldown, c.Navigation.AisleTraversalS)

	robotCtrl := robot.NewController("robot-1", g, paths, store, bus, robot.Config{
		Speed:        c.Robot.Speed,
		PickDuration: time.Duration(c.Robot.PickTimeS * float64(time.Second)),
		MaxItems:     c.Robot.MaxItems,
	}, log)

	queue := orders.NewQueue(c.Orders.QueueCap)
	gen := orders.NewGenerator(bus, queue, store, orders.GeneratorConfig{
		Interval: time.Duration(c.Orders.IntervalS * float64(time.Second)),
		MinItems: c.Orders.MinItems,
		MaxItems: c.Orders.MaxItems,
		Seed:     2,
	}, log)
	assigner := orders.NewAssigner(bus, queue, robotCtrl, log)

	tr := tracker.New(bus, g.Packout, TrackerWindow, log)

	locate := func(itemID string) (int, int, bool) {
		item, ok := store.Get(itemID)
		if !ok {
			return 0, 0, false
		}
		return item.Location.Aisle, item.Location.Rack, true
	}
	an := analytics.New(bus, time.Duration(c.Analytics.WindowS*float64(time.Second)), locate, metricsReg)

	s := &Sim{
		Log: log, Registry: live, Bus: bus, Clock: clk, Grid: g,
		Store: store, Paths: paths, Robot: robotCtrl, Queue: queue,
		Gen: gen, Assigner: assigner, Tracker: tr, Analytics: an,
		metricsReg:   metricsReg,
		trackedItems: make(map[string][]string),
		stopLoop:     make(chan struct{}),
	}
	s.wireSubscribers()
	s.registerUpdates()
	go s.driveClock()
	return s, nil
}

// driveClock paces the Clock at its target frame rate for the Sim's entire
// lifetime, independent of the Clock's own run state. Clock.Tick already
// no-ops while STOPPED, so this loop simply needs to keep calling it; a
// one-shot Clock.Run would exit the first time the clock stops and never
// resume on a later "start" command, which is why Sim owns this loop rather
// than handing control to Clock.Run itself.
func (s *Sim) driveClock() {
	for {
		select {
		case <-s.stopLoop:
			return
		default:
		}
		s.Clock.Wait()
		s.mu.Lock()
		s.Clock.Tick()
		s.mu.Unlock()
	}
}

// wireSubscribers connects the cross-component correlations the
// Integration Layer is responsible for, per spec.md §4.11 — specifically
// handing the freshly assigned order to the tracker, and feeding the
// analytics engine's path-efficiency sample on completion.
func (s *Sim) wireSubscribers() {
	s.Bus.Subscribe(eventbus.Predicate{Type: typePtr(eventbus.OrderAssigned)}, func(eventbus.Event) {
		order := s.Robot.CurrentOrder()
		if order == nil {
			return
		}
		s.Tracker.Track(order)
		s.trackedItems[order.ID] = order.Items
	})

	s.Bus.Subscribe(eventbus.Predicate{Type: typePtr(eventbus.OrderCompleted)}, func(e eventbus.Event) {
		p := e.Payload.(orders.OrderCompletedPayload)
		items := s.trackedItems[p.OrderID]
		delete(s.trackedItems, p.OrderID)
		eff := s.Analytics.ObserveOrderItems(p.OrderID, items, s.Grid.Packout.Aisle, s.Grid.Packout.Rack, p.Distance)
		s.Analytics.RecordCompletion(p.Duration, eff)
	})

	s.Bus.Subscribe(eventbus.Predicate{Type: typePtr(eventbus.OrderCancelled)}, func(e eventbus.Event) {
		p := e.Payload.(orders.OrderEndedPayload)
		delete(s.trackedItems, p.OrderID)
	})
	s.Bus.Subscribe(eventbus.Predicate{Type: typePtr(eventbus.OrderFailed)}, func(e eventbus.Event) {
		p := e.Payload.(orders.OrderEndedPayload)
		delete(s.trackedItems, p.OrderID)
	})
}

func typePtr(t eventbus.Type) *eventbus.Type { return &t }

// registerUpdates wires the Clock's fixed per-tick order, per spec.md §5:
// Generator → Robot → Queue/Assigner → Tracker → Analytics → EventBus
// drain. Tracker needs no per-tick hook of its own; it is purely
// event-reactive.
func (s *Sim) registerUpdates() {
	s.Clock.RegisterUpdate(s.Gen.Update)
	s.Clock.RegisterUpdate(s.Robot.Update)
	s.Clock.RegisterUpdate(s.Assigner.Update)
	s.Clock.RegisterUpdate(func(dt time.Duration) {
		s.Analytics.Tick(dt, s.Queue.Size())
	})
}

// Status is the pull-interface snapshot for the `status` control command,
// per spec.md §6.
type Status struct {
	ClockState    clock.State
	Speed         float64
	QueueSize     int
	RobotState    robot.State
	RobotPosition grid.Coordinate
	KPIs          analytics.KPISnapshot
}

// Command dispatches one of spec.md §6's control commands. speed is only
// consulted for the "speed" command. It holds the same lock the background
// tick loop holds during a Tick, so a command never observes or mutates
// state mid-tick.
func (s *Sim) Command(cmd string, speed float64) (Status, error) {
	if cmd == "shutdown" {
		s.Shutdown()
		return s.Status(), nil
	}

	s.mu.Lock()
	var cmdErr error
	switch cmd {
	case "start":
		if s.Clock.State() == clock.Running {
			s.Log.Warn("start: already running")
		}
		s.Clock.Start()
	case "stop":
		s.Clock.Stop()
	case "pause":
		if s.Clock.State() != clock.Running {
			s.Log.Warn("pause: not running")
		}
		s.Clock.Pause()
	case "resume":
		if s.Clock.State() != clock.Paused {
			s.Log.Warn("resume: not paused")
		}
		s.Clock.Resume()
	case "speed":
		clamped := speed
		if clamped < clock.MinSpeed || clamped > clock.MaxSpeed {
			s.Log.Warnf("speed %v out of [%v,%v], clamping", speed, clock.MinSpeed, clock.MaxSpeed)
		}
		s.Clock.SetSpeed(clamped)
	case "status":
		// no-op: status is always returned below
	default:
		cmdErr = fmt.Errorf("sim: unknown command %q", cmd)
	}
	s.mu.Unlock()

	return s.Status(), cmdErr
}

// Status returns the current snapshot, per spec.md §6's `status` command.
func (s *Sim) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ClockState:    s.Clock.State(),
		Speed:         s.Clock.Speed(),
		QueueSize:     s.Queue.Size(),
		RobotState:    s.Robot.State(),
		RobotPosition: s.Robot.Position(),
		KPIs:          s.Analytics.Snapshot(),
	}
}

// RobotPosition returns the robot's current integer-snapped coordinate. It
// exists alongside Status so renderers that only need the position don't
// pay for a full KPI snapshot, while still going through Sim's lock rather
// than reading the Controller's fields unguarded against the tick loop.
func (s *Sim) RobotPosition() grid.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Robot.Position()
}

// Shutdown performs the orderly teardown spec.md §4.11 describes: stop the
// generator from admitting new orders, drain the queue to a known state
// (PENDING orders are simply discarded — nothing has been promised to
// them yet), stop the Clock, and flush any events still queued on the
// bus. Subscribers need no explicit teardown since they hold no external
// resources; dropping the Sim value is sufficient.
func (s *Sim) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for {
			if _, ok := s.Queue.Dequeue(); !ok {
				break
			}
		}
		s.Clock.Stop()
		close(s.stopLoop)
		s.Bus.Drain()
	})
}
