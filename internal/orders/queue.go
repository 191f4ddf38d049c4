package orders

import (
	"container/list"

	"github.com/sdwilson/roibot/internal/apperrors"
)

// Queue is a bounded FIFO of PENDING orders, per spec.md §4.7. A
// container/list backs it rather than a channel so size/remove/snapshot
// are all possible without draining.
type Queue struct {
	cap   int
	items *list.List
	byID  map[string]*list.Element
}

// NewQueue constructs an empty Queue with the given capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{cap: capacity, items: list.New(), byID: make(map[string]*list.Element)}
}

// Enqueue appends order to the tail. It returns a KindSaturation error if
// the queue is at capacity — overflow is an explicit rejection, never a
// silent drop (spec.md §4.7).
func (q *Queue) Enqueue(o *Order) error {
	if q.items.Len() >= q.cap {
		return apperrors.Saturation("orders.queue_full", "order queue is at capacity")
	}
	el := q.items.PushBack(o)
	q.byID[o.ID] = el
	return nil
}

// Dequeue removes and returns the head order, or ok=false if empty.
func (q *Queue) Dequeue() (*Order, bool) {
	front := q.items.Front()
	if front == nil {
		return nil, false
	}
	q.items.Remove(front)
	o := front.Value.(*Order)
	delete(q.byID, o.ID)
	return o, true
}

// Remove removes the order with the given id from anywhere in the queue,
// returning ok=false if not present (e.g. already dequeued or never
// enqueued).
func (q *Queue) Remove(id string) bool {
	el, ok := q.byID[id]
	if !ok {
		return false
	}
	q.items.Remove(el)
	delete(q.byID, id)
	return true
}

// Size returns the number of queued orders.
func (q *Queue) Size() int { return q.items.Len() }

// Cap returns the queue's configured capacity.
func (q *Queue) Cap() int { return q.cap }

// Snapshot returns the queued orders in FIFO order, head first.
func (q *Queue) Snapshot() []*Order {
	out := make([]*Order, 0, q.items.Len())
	for el := q.items.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Order))
	}
	return out
}
