// Package analytics implements the Analytics Engine from spec.md §4.9:
// rolling-window KPIs computed off fixed-capacity ring buffers (per
// spec.md §9's "append-only lists → fixed-size ring buffers" redesign
// flag), plus a cumulative Prometheus counter for event throughput,
// grounded on
// temporal-wms-wms-platform/shared/pkg/metrics/metrics.go's
// CounterVec/HistogramVec shape (already reused by internal/eventbus).
package analytics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sdwilson/roibot/internal/eventbus"
	"github.com/sdwilson/roibot/internal/robot"
)

// ItemLocator resolves an item ID to its warehouse coordinate, letting the
// engine compute each order's optimal Manhattan tour length without
// depending on the inventory package directly.
type ItemLocator func(itemID string) (aisle, rack int, ok bool)

// KPISnapshot is the pull-interface value object spec.md §6's "Analytics
// snapshot" names. Snapshot() returns one of these in O(1): it aggregates
// running sums, never the ring buffer itself.
type KPISnapshot struct {
	WindowStart         time.Time
	OrdersPerHour       float64
	MeanCompletionTime  time.Duration
	MeanPathEfficiency  float64
	RobotUtilization    float64
	QueueLengthAverage  float64
	CompletedInWindow   int
	EventsTotal         uint64
}

// completionSample is one ring-buffer entry backing the order-level KPIs.
type completionSample struct {
	at         time.Time
	duration   time.Duration
	efficiency float64
}

// tickSample is one ring-buffer entry backing the per-tick KPIs (robot
// utilization and queue-length time-average).
type tickSample struct {
	at       time.Time
	dt       time.Duration
	robotIdle bool
	queueLen int
}

// Engine is the Analytics Engine. It subscribes to every event type,
// maintains rolling-window aggregates with O(1) amortized eviction, and
// exposes Snapshot() in O(1).
type Engine struct {
	window time.Duration
	locate ItemLocator

	completions    []completionSample
	completionHead int
	completionLen  int
	completionSum  struct {
		duration   time.Duration
		efficiency float64
	}

	ticks    []tickSample
	tickHead int
	tickLen  int
	tickSum  struct {
		total    time.Duration
		nonIdle  time.Duration
		queueDt  float64 // Σ queueLen * dt.Seconds()
	}

	robotIdle bool

	eventsTotal uint64
	metrics     *Metrics
}

// New constructs an Engine with fixed ring-buffer capacities (4096
// completion samples, 8192 tick samples) that do not depend on window;
// capacity is a hard upper bound on memory regardless of how long the
// simulation runs, per spec.md §9, and the oldest sample is evicted when
// a buffer is full even if it is still inside window.
func New(bus *eventbus.Bus, window time.Duration, locate ItemLocator, reg prometheus.Registerer) *Engine {
	const completionCapacity = 4096
	const tickCapacity = 8192

	e := &Engine{
		window:      window,
		locate:      locate,
		completions: make([]completionSample, completionCapacity),
		ticks:       make([]tickSample, tickCapacity),
		robotIdle:   true,
		metrics:     newMetrics(reg),
	}
	bus.Subscribe(eventbus.Predicate{}, e.onEvent)
	return e
}

// onEvent counts every event for the cumulative throughput metric and
// tracks the robot's idle/non-idle state for the utilization KPI.
// ORDER_COMPLETED does not feed the rolling window here: computing its
// path-efficiency sample needs the order's item coordinates, which
// Analytics deliberately does not hold (it never touches the store or
// queue directly) — internal/sim resolves those via ObserveOrderItems and
// pushes the sample with RecordCompletion.
func (e *Engine) onEvent(ev eventbus.Event) {
	e.eventsTotal++
	e.metrics.events.WithLabelValues(string(ev.Type)).Inc()

	if ev.Type == eventbus.RobotStateChanged {
		p := ev.Payload.(robot.RobotStateChangedPayload)
		e.robotIdle = p.To == robot.Idle
	}
}

// ObserveOrderItems computes optimal Manhattan tour length / actual
// distance for a completed order, per spec.md §4.9. "Optimal" is
// approximated by a greedy nearest-neighbor tour from packout through
// every item and back; an exact TSP solution is not worth the cost for a
// KPI estimate. The caller (internal/sim) supplies the item list and
// packout coordinate so Analytics itself never touches the inventory
// store or order queue.
func (e *Engine) ObserveOrderItems(orderID string, items []string, packoutAisle, packoutRack int, actualDistance int) float64 {
	if e.locate == nil || actualDistance <= 0 || len(items) == 0 {
		return 1.0
	}
	optimal := greedyManhattanTour(packoutAisle, packoutRack, items, e.locate)
	if optimal <= 0 {
		return 1.0
	}
	eff := float64(optimal) / float64(actualDistance)
	if eff > 1.0 {
		eff = 1.0
	}
	return eff
}

func greedyManhattanTour(startAisle, startRack int, items []string, locate ItemLocator) int {
	remaining := make([]string, 0, len(items))
	for _, id := range items {
		if _, _, ok := locate(id); ok {
			remaining = append(remaining, id)
		}
	}
	total := 0
	curAisle, curRack := startAisle, startRack
	for len(remaining) > 0 {
		bestIdx, bestDist := -1, 0
		for i, id := range remaining {
			a, r, _ := locate(id)
			d := absInt(a-curAisle) + absInt(r-curRack)
			if bestIdx == -1 || d < bestDist {
				bestIdx, bestDist = i, d
			}
		}
		total += bestDist
		a, r, _ := locate(remaining[bestIdx])
		curAisle, curRack = a, r
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	total += absInt(curAisle-startAisle) + absInt(curRack-startRack)
	return total
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// RecordCompletion lets internal/sim push a precomputed efficiency value
// (via ObserveOrderItems) into the rolling window, since onEvent alone
// cannot resolve item coordinates.
func (e *Engine) RecordCompletion(duration time.Duration, efficiency float64) {
	e.recordCompletion(completionSample{at: time.Now(), duration: duration, efficiency: efficiency})
}

func (e *Engine) recordCompletion(s completionSample) {
	e.evictStaleCompletions(s.at)

	if e.completionLen == len(e.completions) {
		oldest := e.completions[e.completionHead]
		e.completionSum.duration -= oldest.duration
		e.completionSum.efficiency -= oldest.efficiency
		e.completionHead = (e.completionHead + 1) % len(e.completions)
		e.completionLen--
	}
	idx := (e.completionHead + e.completionLen) % len(e.completions)
	e.completions[idx] = s
	e.completionLen++
	e.completionSum.duration += s.duration
	e.completionSum.efficiency += s.efficiency
}

func (e *Engine) evictStaleCompletions(now time.Time) {
	for e.completionLen > 0 {
		oldest := e.completions[e.completionHead]
		if now.Sub(oldest.at) <= e.window {
			break
		}
		e.completionSum.duration -= oldest.duration
		e.completionSum.efficiency -= oldest.efficiency
		e.completionHead = (e.completionHead + 1) % len(e.completions)
		e.completionLen--
	}
}

// Tick lets the scheduler (or internal/sim, on its behalf) feed per-tick
// samples for the utilization and queue-length KPIs. dt is the simulated
// delta this tick advanced by; queueLen is the order queue's current
// depth.
func (e *Engine) Tick(dt time.Duration, queueLen int) {
	now := time.Now()
	e.evictStaleTicks(now)

	s := tickSample{at: now, dt: dt, robotIdle: e.robotIdle, queueLen: queueLen}
	if e.tickLen == len(e.ticks) {
		oldest := e.ticks[e.tickHead]
		e.subtractTick(oldest)
		e.tickHead = (e.tickHead + 1) % len(e.ticks)
		e.tickLen--
	}
	idx := (e.tickHead + e.tickLen) % len(e.ticks)
	e.ticks[idx] = s
	e.tickLen++
	e.addTick(s)
}

func (e *Engine) addTick(s tickSample) {
	e.tickSum.total += s.dt
	if !s.robotIdle {
		e.tickSum.nonIdle += s.dt
	}
	e.tickSum.queueDt += float64(s.queueLen) * s.dt.Seconds()
}

func (e *Engine) subtractTick(s tickSample) {
	e.tickSum.total -= s.dt
	if !s.robotIdle {
		e.tickSum.nonIdle -= s.dt
	}
	e.tickSum.queueDt -= float64(s.queueLen) * s.dt.Seconds()
}

func (e *Engine) evictStaleTicks(now time.Time) {
	for e.tickLen > 0 {
		oldest := e.ticks[e.tickHead]
		if now.Sub(oldest.at) <= e.window {
			break
		}
		e.subtractTick(oldest)
		e.tickHead = (e.tickHead + 1) % len(e.ticks)
		e.tickLen--
	}
}

// Snapshot returns the current KPI aggregates in O(1).
func (e *Engine) Snapshot() KPISnapshot {
	snap := KPISnapshot{EventsTotal: e.eventsTotal}

	if e.completionLen > 0 {
		snap.CompletedInWindow = e.completionLen
		snap.MeanCompletionTime = e.completionSum.duration / time.Duration(e.completionLen)
		snap.MeanPathEfficiency = e.completionSum.efficiency / float64(e.completionLen)
		oldest := e.completions[e.completionHead]
		elapsed := time.Since(oldest.at)
		if elapsed > 0 {
			snap.OrdersPerHour = float64(e.completionLen) / elapsed.Hours()
		}
		snap.WindowStart = oldest.at
	}

	if e.tickSum.total > 0 {
		snap.RobotUtilization = e.tickSum.nonIdle.Seconds() / e.tickSum.total.Seconds()
		snap.QueueLengthAverage = e.tickSum.queueDt / e.tickSum.total.Seconds()
	}

	return snap
}
