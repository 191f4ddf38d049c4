package main

import (
	"fmt"
	"strings"

	"github.com/sdwilson/roibot/internal/grid"
	"github.com/sdwilson/roibot/internal/sim"
)

// clearScreen and render are adapted from
// b-librobot/librobot/librobot_warehouse.go's ClearScreen/Render: same
// ANSI-escape approach, redrawn against the simulation's own grid, robot
// position, and packout cell instead of the original crate/robot map.

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}

func gridHeightForPrompt(s *sim.Sim) int {
	return s.Grid.Height
}

// render draws the current warehouse state: "[P]" for packout, "[R]" for
// the robot, " - " for an empty cell. It does not clear the screen itself
// (the caller repositions the cursor first, per viewCmd in main.go).
func render(s *sim.Sim) {
	robotPos := s.RobotPosition()
	status := s.Status()

	var b strings.Builder
	fmt.Fprintf(&b, "roibot — clock=%s speed=%.2fx queue=%d robot=%s\n\n",
		status.ClockState, status.Speed, status.QueueSize, status.RobotState)

	for rack := s.Grid.Height; rack >= 1; rack-- {
		for aisle := 1; aisle <= s.Grid.Width; aisle++ {
			cell := grid.Coordinate{Aisle: aisle, Rack: rack}
			switch {
			case cell.Equal(robotPos):
				b.WriteString("[R]")
			case s.Grid.IsPackout(cell):
				b.WriteString("[P]")
			default:
				b.WriteString(" - ")
			}
		}
		b.WriteByte('\n')
	}
	fmt.Print(b.String())
}
