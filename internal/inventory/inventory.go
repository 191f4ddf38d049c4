// Package inventory implements the keyed item store described in
// spec.md §4.6. It generalizes a boolean crate grid
// (warehouseImpl.crates in b-librobot/librobot/librobot_warehouse.go,
// which only recorded presence/absence at a coordinate) into a
// quantity-bearing keyed map with an explicit reservation contract.
package inventory

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/sdwilson/roibot/internal/eventbus"
	"github.com/sdwilson/roibot/internal/grid"
	"github.com/sdwilson/roibot/internal/obslog"
)

// Item is one inventory record, per spec.md §4.6.
type Item struct {
	ID        string
	Location  grid.Coordinate
	Quantity  int
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the keyed item map. All mutations serialize through its
// methods; under the single-threaded cooperative scheduler (spec.md §5)
// this is trivially met since only the owning tick ever calls in.
type Store struct {
	items map[string]Item
	bus   *eventbus.Bus
	log   *obslog.Logger
}

// New constructs an empty Store. log may be nil, in which case a
// discarding logger is used.
func New(bus *eventbus.Bus, log *obslog.Logger) *Store {
	if log == nil {
		log = obslog.Noop()
	}
	return &Store{items: make(map[string]Item), bus: bus, log: log}
}

// Put inserts or overwrites an item record directly, used by Seed and by
// tests; it does not emit an event (unlike UpdateQuantity).
func (s *Store) Put(item Item) {
	s.items[item.ID] = item
}

// Get returns the item for id and whether it exists (spec.md's
// "get(id) → Item?").
func (s *Store) Get(id string) (Item, bool) {
	item, ok := s.items[id]
	return item, ok
}

// UpdateQuantity atomically replaces an item's quantity and emits
// INVENTORY_UPDATED. Per the clamp-at-zero resolution of spec.md §9 open
// question (a), newQ is floored at zero.
func (s *Store) UpdateQuantity(id string, newQ int) error {
	item, ok := s.items[id]
	if !ok {
		return fmt.Errorf("inventory: unknown item %q", id)
	}
	if newQ < 0 {
		newQ = 0
	}
	item.Quantity = newQ
	item.UpdatedAt = s.now()
	s.items[id] = item
	s.log.WithFields(obslog.Fields{"item_id": id, "quantity": item.Quantity}).Debug("inventory quantity updated")
	s.emit(id, item.Quantity)
	return nil
}

// ReserveForOrder validates that every item id in ids exists. It does not
// lock or decrement stock (spec.md §4.6: "unlimited stock").
func (s *Store) ReserveForOrder(ids []string) bool {
	for _, id := range ids {
		if _, ok := s.items[id]; !ok {
			s.log.WithFields(obslog.Fields{"item_id": id}).Warn("order references unknown item")
			return false
		}
	}
	return true
}

// ApplyCollection decrements item id by one, clamped at zero, and emits
// INVENTORY_UPDATED.
func (s *Store) ApplyCollection(orderID, itemID string) error {
	item, ok := s.items[itemID]
	if !ok {
		return fmt.Errorf("inventory: unknown item %q for order %q", itemID, orderID)
	}
	return s.UpdateQuantity(itemID, item.Quantity-1)
}

// Snapshot returns a read-only copy of every item, keyed by id.
func (s *Store) Snapshot() map[string]Item {
	out := make(map[string]Item, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}

// IDs returns every item id, sorted, for deterministic iteration (e.g. the
// order generator's uniform sampling).
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) emit(itemID string, quantity int) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(eventbus.Event{
		Type:      eventbus.InventoryUpdated,
		Priority:  eventbus.DefaultPriority(eventbus.InventoryUpdated),
		Payload:   InventoryUpdatedPayload{ItemID: itemID, Quantity: quantity},
		Timestamp: s.now(),
		Source:    "inventory",
	})
}

func (s *Store) now() time.Time { return time.Now() }

// InventoryUpdatedPayload is the payload for an INVENTORY_UPDATED event.
type InventoryUpdatedPayload struct {
	ItemID   string
	Quantity int
}

const (
	letters      = "ABCDEFGHIJKLMNOPQRSTUVWXY" // spec.md §4.6's ITEM_{A..Y}{1..20} id scheme
	perLetterCap = 20
)

// Seed populates a Store with the default 500-item layout described in
// spec.md §4.6: ids in the scheme ITEM_{A..Y}{1..20}, placed at
// pseudo-random non-packout coordinates, deterministic given seed. log may
// be nil, in which case a discarding logger is used.
func Seed(bus *eventbus.Bus, g *grid.Grid, seed int64, log *obslog.Logger) *Store {
	s := New(bus, log)
	rng := rand.New(rand.NewSource(seed))
	now := time.Now()

	for _, letter := range letters {
		for n := 1; n <= perLetterCap; n++ {
			id := fmt.Sprintf("ITEM_%c%d", letter, n)
			loc := randomNonPackoutCoordinate(rng, g)
			s.Put(Item{
				ID:        id,
				Location:  loc,
				Quantity:  1,
				Category:  string(letter),
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	s.log.WithFields(obslog.Fields{"item_count": len(s.items), "seed": seed}).Info("inventory seeded")
	return s
}

func randomNonPackoutCoordinate(rng *rand.Rand, g *grid.Grid) grid.Coordinate {
	for {
		c := grid.Coordinate{Aisle: rng.Intn(g.Width) + 1, Rack: rng.Intn(g.Height) + 1}
		if !g.IsPackout(c) {
			return c
		}
	}
}
