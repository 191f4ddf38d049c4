// Package pathing implements the bidirectional snake-pattern path engine
// and multi-item tour planner described in spec.md §4.2. Shortest-path
// search is delegated to github.com/katalvlaran/lvlath/graph's BFS over a
// directed graph whose edges are exactly the legal snake moves for a given
// Direction — this grounds "minimum length under the snake constraint" in
// a real graph library instead of a hand-rolled walk.
package pathing

import (
	"fmt"
	"time"

	"github.com/katalvlaran/lvlath/graph"

	"github.com/sdwilson/roibot/internal/grid"
)

// Direction is the snake-pattern traversal mode for a path segment, per
// spec.md §3.
type Direction int

const (
	Forward Direction = iota
	Reverse
)

func (d Direction) String() string {
	if d == Forward {
		return "FORWARD"
	}
	return "REVERSE"
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Forward {
		return Reverse
	}
	return Forward
}

// Segment is one direction-consistent leg of a tour: a concrete ordered
// list of coordinates, all traversed under the same Direction.
type Segment struct {
	Path      []grid.Coordinate
	Direction Direction
}

// Length returns the number of moves (edges) in the segment.
func (s Segment) Length() int {
	if len(s.Path) == 0 {
		return 0
	}
	return len(s.Path) - 1
}

// Engine plans snake-constrained paths over a fixed Grid. It is safe for
// concurrent read-only use once constructed; the two direction graphs are
// built once and never mutated afterward.
type Engine struct {
	g          *grid.Grid
	cooldown   time.Duration
	graphs     [2]*graph.Graph
	stepPeriod time.Duration // simulated time per grid-unit step, for cooldown accounting
}

// NewEngine builds both direction graphs for g. cooldown is the
// direction-change cooldown (spec.md §4.2, default 0.5s). stepPeriod is
// the simulated time a single grid-unit move is assumed to take while
// *planning* (not executing) a tour, derived from the aisle-traversal-time
// navigation parameter (aisleTraversalSeconds / 19 inter-rack steps per
// full aisle, spec.md §4.2's "Aisle traversal timing").
func NewEngine(g *grid.Grid, cooldown time.Duration, aisleTraversalSeconds float64) *Engine {
	e := &Engine{g: g, cooldown: cooldown}
	e.graphs[Forward] = buildGraph(g, Forward)
	e.graphs[Reverse] = buildGraph(g, Reverse)
	if g.Height > 1 {
		e.stepPeriod = time.Duration(aisleTraversalSeconds / float64(g.Height-1) * float64(time.Second))
	} else {
		e.stepPeriod = time.Duration(aisleTraversalSeconds * float64(time.Second))
	}
	return e
}

func vertexID(c grid.Coordinate) string {
	return fmt.Sprintf("%d_%d", c.Aisle, c.Rack)
}

// nextRack returns the rack reached by a legal in-aisle step from rack
// under dir, or ok=false if rack is already at the grid boundary in the
// aisle's legal direction (no further in-aisle move is possible at all).
func nextRack(aisle, rack, height int, dir Direction) (int, bool) {
	isOdd := aisle%2 == 1
	increasing := (isOdd && dir == Forward) || (!isOdd && dir == Reverse)
	if increasing {
		if rack >= height {
			return 0, false
		}
		return rack + 1, true
	}
	if rack <= 1 {
		return 0, false
	}
	return rack - 1, true
}

// buildGraph constructs the directed graph of legal moves under dir: one
// edge per in-aisle monotonic step (spec.md §4.2's snake rule — odd aisles
// only increase, even aisles only decrease, under FORWARD; REVERSE
// inverts both), plus a cross-aisle edge to each neighbouring aisle at
// every rack.
//
// spec.md's prose also restricts cross-aisle moves to each aisle's
// physical terminal rack (20/1). Taken literally that reading is
// inconsistent with the worked examples in spec.md §8 (S1 and S2 both
// expect plain Manhattan-distance totals, which a terminal-only crossing
// rule cannot produce once start and target sit in non-adjacent aisles),
// and §8's own testable invariant #6 only requires in-aisle monotonicity,
// not terminal-only crossing. This implementation therefore allows
// crossing at any rack and enforces only the monotonic in-aisle rule,
// which is the reading spec.md §8's worked examples actually test against
// (documented in DESIGN.md).
func buildGraph(g *grid.Grid, dir Direction) *graph.Graph {
	gr := graph.NewGraph(true, false)
	for aisle := 1; aisle <= g.Width; aisle++ {
		for rack := 1; rack <= g.Height; rack++ {
			from := grid.Coordinate{Aisle: aisle, Rack: rack}
			if next, ok := nextRack(aisle, rack, g.Height, dir); ok {
				to := grid.Coordinate{Aisle: aisle, Rack: next}
				gr.AddEdge(vertexID(from), vertexID(to), 1)
			}
			for _, na := range []int{aisle - 1, aisle + 1} {
				if na < 1 || na > g.Width {
					continue
				}
				to := grid.Coordinate{Aisle: na, Rack: rack}
				gr.AddEdge(vertexID(from), vertexID(to), 1)
			}
		}
	}
	return gr
}

// PlanDirected computes the shortest legal path from start to target under
// dir. terminal must be true only when target is the final node of a
// tour (spec.md §4.2: packout may only appear as a non-starting waypoint
// at the tour's final node).
func (e *Engine) PlanDirected(start, target grid.Coordinate, dir Direction, terminal bool) ([]grid.Coordinate, error) {
	if !e.g.Valid(start) {
		return nil, fmt.Errorf("pathing: start %s out of bounds", start)
	}
	if !e.g.Valid(target) {
		return nil, fmt.Errorf("pathing: target %s out of bounds", target)
	}
	if e.g.IsPackout(target) && !terminal {
		return nil, fmt.Errorf("pathing: packout %s may only be a tour's final node", target)
	}
	if start.Equal(target) {
		return []grid.Coordinate{start}, nil
	}

	gr := e.graphs[dir]
	startID, targetID := vertexID(start), vertexID(target)
	result, err := gr.BFS(startID, nil)
	if err != nil {
		return nil, fmt.Errorf("pathing: bfs from %s: %w", start, err)
	}
	if !result.Visited[targetID] {
		return nil, fmt.Errorf("pathing: no legal %s path from %s to %s", dir, start, target)
	}

	// Reconstruct the path by walking Parent back from target to start.
	var rev []string
	cur := targetID
	for cur != startID {
		rev = append(rev, cur)
		parent, ok := result.Parent[cur]
		if !ok {
			return nil, fmt.Errorf("pathing: broken parent chain reconstructing path to %s", target)
		}
		cur = parent
	}
	rev = append(rev, startID)

	path := make([]grid.Coordinate, len(rev))
	for i, id := range rev {
		path[len(rev)-1-i] = mustParseVertexID(id)
	}
	return path, nil
}

func mustParseVertexID(id string) grid.Coordinate {
	var a, r int
	if _, err := fmt.Sscanf(id, "%d_%d", &a, &r); err != nil {
		panic(fmt.Sprintf("pathing: malformed vertex id %q: %v", id, err))
	}
	return grid.Coordinate{Aisle: a, Rack: r}
}

// PlanResult is the outcome of planning one direction-consistent leg,
// including the cooldown bookkeeping needed to plan the next leg.
type PlanResult struct {
	Segment         Segment
	Changed         bool          // true iff the chosen direction differs from prevDir
	SinceLastChange time.Duration // elapsed simulated time since the last actual change, after this leg
}

// PlanLeg computes both direction candidates from start to target, picks
// the shorter (ties favour prevDir), and suppresses a direction change
// that would occur before the cooldown has elapsed since the last change.
func (e *Engine) PlanLeg(start, target grid.Coordinate, prevDir Direction, sinceLastChange time.Duration, terminal bool) (PlanResult, error) {
	fwd, errF := e.PlanDirected(start, target, Forward, terminal)
	rev, errR := e.PlanDirected(start, target, Reverse, terminal)
	if errF != nil && errR != nil {
		return PlanResult{}, fmt.Errorf("pathing: no legal path from %s to %s: %v / %v", start, target, errF, errR)
	}

	var chosen Direction
	var path []grid.Coordinate
	switch {
	case errF != nil:
		chosen, path = Reverse, rev
	case errR != nil:
		chosen, path = Forward, fwd
	case len(fwd) < len(rev):
		chosen, path = Forward, fwd
	case len(rev) < len(fwd):
		chosen, path = Reverse, rev
	default: // tie: keep previous direction
		chosen = prevDir
		if prevDir == Forward {
			path = fwd
		} else {
			path = rev
		}
	}

	wantsChange := chosen != prevDir
	withinCooldown := sinceLastChange < e.cooldown
	if wantsChange && withinCooldown {
		// Retain prior direction even if suboptimal (spec.md §4.2, §9 open
		// question (b): cooldown boundary is strictly less-than).
		chosen = prevDir
		if prevDir == Forward {
			path = fwd
		} else {
			path = rev
		}
		if len(path) == 0 { // prior direction can't reach target at all; must switch anyway
			chosen = chosen.Opposite()
			if chosen == Forward {
				path = fwd
			} else {
				path = rev
			}
		}
	}

	seg := Segment{Path: path, Direction: chosen}
	result := PlanResult{Segment: seg}
	if chosen != prevDir {
		result.Changed = true
		result.SinceLastChange = legDuration(seg, e.stepPeriod)
	} else {
		result.Changed = false
		result.SinceLastChange = sinceLastChange + legDuration(seg, e.stepPeriod)
	}
	return result, nil
}

func legDuration(seg Segment, stepPeriod time.Duration) time.Duration {
	return time.Duration(seg.Length()) * stepPeriod
}

// Tour is the full concatenated plan for an order: start -> item1 -> ... ->
// itemN -> packout, per spec.md §4.2.
type Tour struct {
	Segments        []Segment
	FinalDirection  Direction
	SinceLastChange time.Duration
}

// PlanTour plans a multi-item tour in the given item order (no TSP
// reorder, per spec.md §4.2: order-fidelity is a product requirement).
// pickDuration is added to the elapsed-since-last-change clock between
// legs, modelling the simulated time spent picking at each item before
// the next leg's direction is chosen.
func (e *Engine) PlanTour(start grid.Coordinate, items []grid.Coordinate, packout grid.Coordinate, prevDir Direction, sinceLastChange, pickDuration time.Duration) (Tour, error) {
	if len(items) == 0 {
		return Tour{}, fmt.Errorf("pathing: tour requires at least one item")
	}

	targets := make([]grid.Coordinate, 0, len(items)+1)
	targets = append(targets, items...)
	targets = append(targets, packout)

	tour := Tour{FinalDirection: prevDir, SinceLastChange: sinceLastChange}
	cur := start
	for i, target := range targets {
		terminal := i == len(targets)-1 // only the packout leg may end at packout
		res, err := e.PlanLeg(cur, target, tour.FinalDirection, tour.SinceLastChange, terminal)
		if err != nil {
			return Tour{}, err
		}
		tour.Segments = append(tour.Segments, res.Segment)
		tour.FinalDirection = res.Segment.Direction
		tour.SinceLastChange = res.SinceLastChange
		if !terminal {
			tour.SinceLastChange += pickDuration
		}
		cur = target
	}
	return tour, nil
}

// FullPath concatenates every segment's coordinates into one path, eliding
// the duplicate boundary coordinate between consecutive segments.
func (t Tour) FullPath() []grid.Coordinate {
	var out []grid.Coordinate
	for i, seg := range t.Segments {
		p := seg.Path
		if i > 0 && len(p) > 0 {
			p = p[1:]
		}
		out = append(out, p...)
	}
	return out
}

// TotalDistance returns the sum of Manhattan grid-units travelled across
// every segment of the tour.
func (t Tour) TotalDistance() int {
	total := 0
	for _, seg := range t.Segments {
		total += seg.Length()
	}
	return total
}
