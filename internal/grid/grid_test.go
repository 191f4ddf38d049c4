package grid_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdwilson/roibot/internal/grid"
)

func TestDefaultGrid(t *testing.T) {
	g := grid.Default()
	require.Equal(t, 25, g.Width)
	require.Equal(t, 20, g.Height)
	require.True(t, g.IsPackout(grid.Coordinate{Aisle: 1, Rack: 1}))
}

func TestValid(t *testing.T) {
	g := grid.Default()
	cases := []struct {
		c    grid.Coordinate
		want bool
	}{
		{grid.Coordinate{Aisle: 1, Rack: 1}, true},
		{grid.Coordinate{Aisle: 25, Rack: 20}, true},
		{grid.Coordinate{Aisle: 0, Rack: 1}, false},
		{grid.Coordinate{Aisle: 1, Rack: 0}, false},
		{grid.Coordinate{Aisle: 26, Rack: 1}, false},
		{grid.Coordinate{Aisle: 1, Rack: 21}, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, g.Valid(tc.c), "coordinate %v", tc.c)
	}
}

func TestDistanceAndAdjacent(t *testing.T) {
	a := grid.Coordinate{Aisle: 5, Rack: 10}
	b := grid.Coordinate{Aisle: 7, Rack: 2}
	require.Equal(t, 10, grid.Distance(a, b))
	require.False(t, grid.Adjacent(a, b))

	c := grid.Coordinate{Aisle: 5, Rack: 11}
	require.True(t, grid.Adjacent(a, c))
}

func TestNewRejectsOutOfBoundsPackout(t *testing.T) {
	_, err := grid.New(5, 5, grid.Coordinate{Aisle: 10, Rack: 10})
	require.Error(t, err)
}
