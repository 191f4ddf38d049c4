package orders

import (
	"math/rand"
	"time"

	"github.com/sdwilson/roibot/internal/eventbus"
	"github.com/sdwilson/roibot/internal/inventory"
	"github.com/sdwilson/roibot/internal/obslog"
)

// Generator emits ORDER_CREATED at a configurable cadence, per spec.md
// §4.7. It is pause-aware for free: the Scheduler delivers dt=0 while
// PAUSED (spec.md §4.4), so the internal interval timer simply never
// advances and no tick can cross the emission threshold.
type Generator struct {
	bus   *eventbus.Bus
	queue *Queue
	store *inventory.Store
	rng   *rand.Rand

	interval time.Duration
	minItems int
	maxItems int
	lowWater int // queue size at or below which emission resumes after a queue-full backoff

	elapsed      time.Duration
	backoff      bool
	backoffCount int

	log *obslog.Logger
}

// GeneratorConfig configures a Generator's cadence and item-count range.
type GeneratorConfig struct {
	Interval time.Duration
	MinItems int
	MaxItems int
	LowWater int // defaults to Queue.Cap()/2 if zero
	Seed     int64
}

// NewGenerator constructs a Generator. log may be nil, in which case a
// discarding logger is used.
func NewGenerator(bus *eventbus.Bus, queue *Queue, store *inventory.Store, cfg GeneratorConfig, log *obslog.Logger) *Generator {
	if log == nil {
		log = obslog.Noop()
	}
	lowWater := cfg.LowWater
	if lowWater <= 0 {
		lowWater = queue.Cap() / 2
	}
	return &Generator{
		bus: bus, queue: queue, store: store,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		interval: cfg.Interval, minItems: cfg.MinItems, maxItems: cfg.MaxItems,
		lowWater: lowWater,
		log:      log,
	}
}

// Update advances the cadence timer by dt and emits ORDER_CREATED + enqueues
// a fresh order once the interval elapses, subject to queue-full backoff.
func (g *Generator) Update(dt time.Duration) {
	g.elapsed += dt
	if g.elapsed < g.interval {
		return
	}
	g.elapsed = 0

	if g.backoff {
		if g.queue.Size() > g.lowWater {
			g.backoffCount++
			g.log.WithFields(obslog.Fields{"queue_size": g.queue.Size(), "low_water": g.lowWater}).
				Debug("order generator holding back, queue above low-water mark")
			return
		}
		g.backoff = false
	}

	order := New(g.randomItems())
	if err := g.queue.Enqueue(order); err != nil {
		// Queue full at generator tick: no event emitted, generator
		// records backoff (spec.md §8's S4 queue-overflow scenario).
		g.backoff = true
		g.backoffCount++
		g.log.WithFields(obslog.Fields{"order_id": order.ID}).Warn("order generator backing off, queue full")
		return
	}

	g.log.WithFields(obslog.Fields{"order_id": order.ID, "item_count": len(order.Items)}).Info("order created")
	emitOrderEvent(g.bus, eventbus.OrderCreated, "order_generator", OrderCreatedPayload{
		OrderID: order.ID, Items: order.Items,
	})
}

// BackoffCount returns how many emission intervals the generator has
// skipped because the queue was full or still above the low-water mark.
func (g *Generator) BackoffCount() int { return g.backoffCount }

func (g *Generator) randomItems() []string {
	all := g.store.IDs()
	n := g.minItems
	if g.maxItems > g.minItems {
		n += g.rng.Intn(g.maxItems - g.minItems + 1)
	}
	if n > len(all) {
		n = len(all)
	}

	g.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return append([]string(nil), all[:n]...)
}
