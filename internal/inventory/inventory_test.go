package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdwilson/roibot/internal/eventbus"
	"github.com/sdwilson/roibot/internal/grid"
	"github.com/sdwilson/roibot/internal/inventory"
)

func TestSeedProducesFiveHundredItemsWithPerLetterCap(t *testing.T) {
	s := inventory.Seed(nil, grid.Default(), 42, nil)
	ids := s.IDs()
	require.Len(t, ids, 500)

	counts := map[byte]int{}
	for _, id := range ids {
		counts[id[5]]++ // ITEM_<letter><n>
	}
	for letter, count := range counts {
		require.Equal(t, 20, count, "letter %c", letter)
	}
}

func TestSeedExcludesPackout(t *testing.T) {
	g := grid.Default()
	s := inventory.Seed(nil, g, 7, nil)
	for _, item := range s.Snapshot() {
		require.False(t, g.IsPackout(item.Location))
	}
}

func TestSeedIsDeterministicGivenSeed(t *testing.T) {
	g := grid.Default()
	a := inventory.Seed(nil, g, 123, nil)
	b := inventory.Seed(nil, g, 123, nil)
	require.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestUpdateQuantityClampsAtZero(t *testing.T) {
	s := inventory.New(nil, nil)
	s.Put(inventory.Item{ID: "ITEM_A1", Quantity: 1})
	require.NoError(t, s.UpdateQuantity("ITEM_A1", -5))
	item, ok := s.Get("ITEM_A1")
	require.True(t, ok)
	require.Equal(t, 0, item.Quantity)
}

func TestUpdateQuantityEmitsInventoryUpdated(t *testing.T) {
	bus := eventbus.New(nil, nil)
	s := inventory.New(bus, nil)
	s.Put(inventory.Item{ID: "ITEM_A1", Quantity: 3})

	var got []eventbus.Event
	bus.Subscribe(eventbus.Predicate{}, func(e eventbus.Event) { got = append(got, e) })

	require.NoError(t, s.UpdateQuantity("ITEM_A1", 2))
	bus.Drain()

	require.Len(t, got, 1)
	require.Equal(t, eventbus.InventoryUpdated, got[0].Type)
}

func TestApplyCollectionDecrementsByOne(t *testing.T) {
	s := inventory.New(nil, nil)
	s.Put(inventory.Item{ID: "ITEM_A1", Quantity: 3})
	require.NoError(t, s.ApplyCollection("order-1", "ITEM_A1"))
	item, _ := s.Get("ITEM_A1")
	require.Equal(t, 2, item.Quantity)
}

func TestReserveForOrderRequiresAllItemsExist(t *testing.T) {
	s := inventory.New(nil, nil)
	s.Put(inventory.Item{ID: "ITEM_A1", Quantity: 1})
	require.True(t, s.ReserveForOrder([]string{"ITEM_A1"}))
	require.False(t, s.ReserveForOrder([]string{"ITEM_A1", "ITEM_Z9"}))
}

func TestGetUnknownItem(t *testing.T) {
	s := inventory.New(nil, nil)
	_, ok := s.Get("missing")
	require.False(t, ok)
}
