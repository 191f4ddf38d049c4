// Package clock implements the fixed-tick Scheduler that drives every
// component update, per spec.md §4.4. It generalizes a view-ticker (a
// bare time.Ticker driving only console redraws, in
// c-robotcli/robot_cli.go's viewCmd) into the simulation's own owned
// scheduler: speed control, pause/resume, and overrun detection.
package clock

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sdwilson/roibot/internal/eventbus"
)

// State is the Scheduler's run state, per spec.md §4.4.
type State int

const (
	Stopped State = iota
	Starting
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Starting:
		return "STARTING"
	case Running:
		return "RUNNING"
	case Paused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

const (
	MinSpeed = 0.1
	MaxSpeed = 10.0

	// DefaultOverrunThreshold is the default tick-overrun budget (spec.md
	// §6: analytics.warn_tick_ms=50).
	DefaultOverrunThreshold = 50 * time.Millisecond
	// DefaultSustainedTicks is how many consecutive overrun ticks must
	// occur before a PERF_WARNING is raised (spec.md §4.4's "sustained
	// overrun", §5's "sustained over N ticks").
	DefaultSustainedTicks = 5
)

// Update is a component's per-tick hook, invoked with the simulated
// elapsed time for this tick (0 while PAUSED).
type Update func(dt time.Duration)

// Scheduler is the single logical execution context described in spec.md
// §5: every tick it computes dt and invokes registered updates in a fixed
// order.
type Scheduler struct {
	mu sync.Mutex

	state           State
	speed           float64
	targetFPS       int
	limiter         *rate.Limiter
	overrunBudget   time.Duration
	sustainTicks    int
	overrunStreak   int

	updates []Update
	bus     *eventbus.Bus

	last time.Time
}

// New constructs a Scheduler in the STOPPED state. targetFPS and speed are
// clamped to their spec.md §4.4/§6 domains.
func New(bus *eventbus.Bus, targetFPS int, speed float64) *Scheduler {
	if targetFPS < 1 {
		targetFPS = 1
	}
	if targetFPS > 120 {
		targetFPS = 120
	}
	s := &Scheduler{
		state:         Stopped,
		speed:         clampSpeed(speed),
		targetFPS:     targetFPS,
		overrunBudget: DefaultOverrunThreshold,
		sustainTicks:  DefaultSustainedTicks,
		bus:           bus,
	}
	s.limiter = rate.NewLimiter(rate.Limit(targetFPS), 1)
	return s
}

func clampSpeed(speed float64) float64 {
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// RegisterUpdate adds a component update hook, invoked in registration
// order every tick (spec.md §5's fixed order: Generator → Robot →
// Queue/Assigner → Tracker → Analytics; the Integration Layer registers
// them in that order, then the bus drain runs last in Tick).
func (s *Scheduler) RegisterUpdate(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, u)
}

// State returns the Scheduler's current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetSpeed clamps and applies speed immediately; it takes effect on the
// next tick.
func (s *Scheduler) SetSpeed(speed float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = clampSpeed(speed)
}

// Speed returns the current speed multiplier.
func (s *Scheduler) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Start transitions STOPPED→STARTING→RUNNING. Calling Start while already
// running is a no-op (idempotent per spec.md §4.11's orderly lifecycle).
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state == Running || s.state == Starting {
		s.mu.Unlock()
		return
	}
	s.state = Starting
	s.mu.Unlock()
	s.emit(eventbus.SimStarted, nil)

	s.mu.Lock()
	s.state = Running
	s.last = time.Now()
	s.overrunStreak = 0
	s.mu.Unlock()
}

// Stop transitions any state to STOPPED. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return
	}
	s.state = Stopped
	s.mu.Unlock()
	s.emit(eventbus.SimStopped, nil)
}

// Pause transitions RUNNING→PAUSED. A no-op outside RUNNING.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return
	}
	s.state = Paused
	s.mu.Unlock()
	s.emit(eventbus.SimPaused, nil)
}

// Resume transitions PAUSED→RUNNING. A no-op outside PAUSED.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if s.state != Paused {
		s.mu.Unlock()
		return
	}
	s.state = Running
	s.last = time.Now()
	s.mu.Unlock()
	s.emit(eventbus.SimResumed, nil)
}

func (s *Scheduler) emit(t eventbus.Type, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(eventbus.Event{
		Type: t, Priority: eventbus.DefaultPriority(t),
		Payload: payload, Timestamp: time.Now(), Source: "clock",
	})
}

// Tick computes dt, invokes every registered update in order, then drains
// the event bus — spec.md §5's fixed per-tick order, with the bus drain
// modeled as the final stage. It does not pace itself; callers wanting
// frame pacing should call Wait beforehand (Run does both).
func (s *Scheduler) Tick() {
	s.mu.Lock()
	state := s.state
	now := time.Now()
	var dt time.Duration
	if state == Running {
		wall := now.Sub(s.last)
		dt = time.Duration(float64(wall) * s.speed)
	}
	s.last = now
	updates := append([]Update(nil), s.updates...)
	overrunBudget := s.overrunBudget
	s.mu.Unlock()

	if state != Running && state != Paused {
		return
	}

	tickStart := time.Now()
	for _, u := range updates {
		u(dt)
	}
	if s.bus != nil {
		s.bus.Drain()
	}

	s.checkOverrun(time.Since(tickStart), overrunBudget)
}

func (s *Scheduler) checkOverrun(elapsed, budget time.Duration) {
	s.mu.Lock()
	if elapsed > budget {
		s.overrunStreak++
	} else {
		s.overrunStreak = 0
	}
	streak := s.overrunStreak
	sustain := s.sustainTicks
	s.mu.Unlock()

	if streak >= sustain {
		s.emit(eventbus.PerfWarning, PerfWarningPayload{
			Kind: "tick_overrun", Measured: elapsed, Threshold: budget,
		})
	}
}

// PerfWarningPayload is the payload for a PERF_WARNING event raised by
// sustained tick overrun, per spec.md §6's event catalog.
type PerfWarningPayload struct {
	Kind      string
	Measured  time.Duration
	Threshold time.Duration
}

// Wait blocks until the next frame boundary per the target FPS, implementing
// spec.md §4.4's "pace the next iteration to meet target frame interval".
// Because the limiter accumulates a token for however much wall time has
// actually elapsed, a tick that overran its budget leaves a token already
// available and Wait returns immediately rather than sleeping — spec.md
// §4.4's backpressure rule ("the next tick does not sleep") falls out of
// the token bucket rather than needing a separate special case.
func (s *Scheduler) Wait() {
	_ = s.limiter.Wait(context.Background())
}

// Run ticks the Scheduler until stopped, pacing each iteration to the
// target frame rate. It blocks the calling goroutine; callers typically
// run it in its own goroutine.
func (s *Scheduler) Run() {
	for s.State() != Stopped {
		s.Wait()
		s.Tick()
	}
}
