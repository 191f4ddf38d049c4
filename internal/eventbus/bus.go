package eventbus

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/sdwilson/roibot/internal/apperrors"
	"github.com/sdwilson/roibot/internal/obslog"
)

// Predicate filters events offered to a subscriber. A nil field means
// "match any" for that dimension, per spec.md §4.3's "predicate filters by
// event type, source, and priority".
type Predicate struct {
	Type     *Type
	Source   *string
	Priority *Priority
}

func (p Predicate) match(e Event) bool {
	if p.Type != nil && *p.Type != e.Type {
		return false
	}
	if p.Source != nil && *p.Source != e.Source {
		return false
	}
	if p.Priority != nil && *p.Priority != e.Priority {
		return false
	}
	return true
}

// Handler processes a dispatched event. It must not block (spec.md §4.3:
// "handlers must not block").
type Handler func(Event)

// Middleware inspects or rewrites an event before dispatch. Returning
// ok=false drops the event for a counted reason.
type Middleware func(Event) (out Event, ok bool, reason string)

type subscription struct {
	id        uint64
	predicate Predicate
	handler   Handler
}

// Bus is the priority/FIFO event queue. The zero value is not usable; build
// one with New.
type Bus struct {
	mu   sync.Mutex
	pq   priorityQueue
	seq  uint64
	subs []subscription
	subID uint64
	chain []Middleware
	log   *logrus.Logger

	metrics *Metrics
}

// New constructs a Bus. log may be nil, in which case a discarding logger is
// used. reg registers the bus's Prometheus collectors; pass nil to skip
// registration (e.g. in tests that construct multiple buses).
func New(log *logrus.Logger, reg prometheus.Registerer) *Bus {
	if log == nil {
		log = obslog.Noop()
	}
	b := &Bus{log: log, metrics: newMetrics(reg)}
	heap.Init(&b.pq)
	return b
}

// Use appends a middleware stage to the chain, applied in registration
// order before dispatch (spec.md §4.3, §9 "Middleware chain").
func (b *Bus) Use(m Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chain = append(b.chain, m)
}

// Subscribe registers handler to be invoked for every event matching
// predicate, at drain time. It returns an unsubscribe function.
func (b *Bus) Subscribe(predicate Predicate, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.subID++
	id := b.subID
	b.subs = append(b.subs, subscription{id: id, predicate: predicate, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit enqueues event for later dispatch and returns immediately (spec.md
// §4.3's emission contract: "enqueues and returns immediately. Delivery is
// not synchronous"). Callers that want the catalog default priority should
// set event.Priority from DefaultPriority(event.Type) themselves.
func (b *Bus) Emit(event Event) {
	b.mu.Lock()
	b.seq++
	event.seq = b.seq
	heap.Push(&b.pq, event)
	b.mu.Unlock()

	b.metrics.queued.WithLabelValues(string(event.Type)).Inc()
}

// Drain dispatches every currently queued event, highest priority and
// earliest sequence first, to every matching subscriber, then returns. It
// is meant to be called once per scheduler tick (spec.md §4.11's
// "EventBus drain" phase).
func (b *Bus) Drain() {
	for {
		event, ok := b.pop()
		if !ok {
			return
		}
		b.dispatch(event)
	}
}

func (b *Bus) pop() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pq.Len() == 0 {
		return Event{}, false
	}
	return heap.Pop(&b.pq).(Event), true
}

func (b *Bus) dispatch(event Event) {
	b.mu.Lock()
	chain := append([]Middleware(nil), b.chain...)
	subs := append([]subscription(nil), b.subs...)
	b.mu.Unlock()

	for _, mw := range chain {
		out, ok, reason := applyMiddleware(mw, event)
		if !ok {
			b.metrics.dropped.WithLabelValues(string(event.Type), reason).Inc()
			return
		}
		event = out
	}

	timer := prometheus.NewTimer(b.metrics.latency.WithLabelValues(string(event.Type)))
	defer timer.ObserveDuration()

	for _, s := range subs {
		if !s.predicate.match(event) {
			continue
		}
		b.invoke(s, event)
	}
	b.metrics.dispatched.WithLabelValues(string(event.Type)).Inc()
}

// applyMiddleware runs mw, converting a panicking middleware into a drop
// with a "panic" reason rather than taking down the drain loop.
func applyMiddleware(mw Middleware, event Event) (out Event, ok bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			out, ok, reason = event, false, fmt.Sprintf("panic: %v", r)
		}
	}()
	return mw(event)
}

// invoke calls s.handler, isolating a panic as a counted handler failure
// (spec.md §4.3's "A handler that raises is caught ... other handlers for
// the same event still run").
func (b *Bus) invoke(s subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			err := apperrors.Handler("eventbus.handler_panic", fmt.Errorf("%v", r))
			b.metrics.handlerFailures.WithLabelValues(string(event.Type)).Inc()
			b.log.WithFields(logrus.Fields{"event_type": event.Type, "subscriber": s.id}).WithError(err).Warn("event handler panicked")
		}
	}()
	s.handler(event)
}

// Len reports the number of events currently queued on the bus.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pq.Len()
}
