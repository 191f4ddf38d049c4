// Command roibot is the simulation's CLI/REPL entrypoint, per spec.md
// §4.11/§6. It is grounded directly on c-robotcli/robot_cli.go's cobra
// command shape (a root command plus verb subcommands, falling back to an
// interactive stdin loop when invoked with no arguments); the original
// per-robot add_robot/add_task/add_crate vocabulary is replaced with the
// single-robot simulation's own control-command table (spec.md §6).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdwilson/roibot/internal/config"
	"github.com/sdwilson/roibot/internal/sim"
)

// Global state shared by every subcommand, mirroring c-robotcli's own
// package-level warehouse/robot_map/done variables — the CLI itself is a
// single-process, single-simulation tool, so one owned *sim.Sim and one
// view goroutine is all it ever needs.
var (
	simulation     *sim.Sim
	done           chan bool
	viewIsRunning  bool
	simulationTick = 200 * time.Millisecond
)

// RootCmd is the base command when roibot is called without any
// subcommands.
var RootCmd = &cobra.Command{
	Use:   "roibot",
	Short: "A warehouse order-picking robot simulator",
	Long: `roibot simulates a single autonomous order-picking robot on a
fixed warehouse grid: it generates orders, routes the robot through
aisles to collect items, and reports live KPIs over the event stream.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("roibot invoked. Use the available commands to control the simulation.")
	},
}

func controlCmd(use, short, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := simulation.Command(verb, 0)
			if err != nil {
				return err
			}
			printStatus(status)
			return nil
		},
	}
}

var startCmd = controlCmd("start", "Start the simulation clock (STOPPED -> RUNNING)", "start")
var stopCmd = controlCmd("stop", "Stop the simulation clock", "stop")
var pauseCmd = controlCmd("pause", "Pause the simulation clock (RUNNING -> PAUSED)", "pause")
var resumeCmd = controlCmd("resume", "Resume the simulation clock (PAUSED -> RUNNING)", "resume")

var speedCmd = &cobra.Command{
	Use:   "speed [multiplier]",
	Short: "Set the simulation speed multiplier, clamped to [0.1, 10.0]",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid speed %q: %w", args[0], err)
		}
		status, err := simulation.Command("speed", x)
		if err != nil {
			return err
		}
		printStatus(status)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current simulation snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		printStatus(simulation.Status())
		return nil
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Orderly stop and teardown",
	RunE: func(cmd *cobra.Command, args []string) error {
		if viewIsRunning {
			close(done)
			viewIsRunning = false
		}
		simulation.Shutdown()
		fmt.Println("Simulation shut down.")
		return nil
	},
}

// viewCmd starts a real-time ASCII view in a separate goroutine, adapted
// from c-robotcli/robot_cli.go's viewCmd / librobot_warehouse.go's
// Render+ClearScreen.
var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Shows a real-time ASCII view of the warehouse",
	Run: func(cmd *cobra.Command, args []string) {
		if viewIsRunning {
			fmt.Println("View is already running. Use 'stop_view' to stop it.")
			return
		}
		done = make(chan bool)
		viewIsRunning = true

		clearScreen()
		go func() {
			ticker := time.NewTicker(simulationTick)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					fmt.Print("\033[H")
					render(simulation)
				case <-done:
					fmt.Println("Stopping view...")
					return
				}
			}
		}()
		fmt.Println("View started. Use 'stop_view' to halt rendering.")
	},
}

var stopViewCmd = &cobra.Command{
	Use:   "stop_view",
	Short: "Stops the real-time ASCII view",
	Run: func(cmd *cobra.Command, args []string) {
		if !viewIsRunning {
			fmt.Println("View is not running.")
			return
		}
		close(done)
		viewIsRunning = false
	},
}

// configCmd loads a YAML configuration file into a fresh simulation,
// replacing the current one. Without it, roibot runs with spec.md §6's
// defaults.
var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Load a YAML configuration file and (re)build the simulation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := loadConfigFile(args[0])
		if err != nil {
			return err
		}
		next, err := sim.New(raw, "info")
		if err != nil {
			return fmt.Errorf("config rejected: %w", err)
		}
		simulation = next
		fmt.Printf("Loaded configuration from %s.\n", args[0])
		return nil
	},
}

func printStatus(s sim.Status) {
	k := s.KPIs
	fmt.Printf("clock=%s speed=%.2fx queue=%d robot=%s@%s\n",
		s.ClockState, s.Speed, s.QueueSize, s.RobotState, s.RobotPosition)
	fmt.Printf("  orders/hr=%.2f mean_completion=%s mean_efficiency=%.2f utilization=%.2f avg_queue=%.2f events=%d\n",
		k.OrdersPerHour, k.MeanCompletionTime, k.MeanPathEfficiency, k.RobotUtilization, k.QueueLengthAverage, k.EventsTotal)
}

func init() {
	RootCmd.AddCommand(startCmd, stopCmd, pauseCmd, resumeCmd, speedCmd, statusCmd, shutdownCmd)
	RootCmd.AddCommand(viewCmd, stopViewCmd)
	RootCmd.AddCommand(configCmd)
}

func main() {
	var err error
	simulation, err = sim.New(config.Default(), "info")
	if err != nil {
		fmt.Println("fatal: failed to construct default simulation:", err)
		os.Exit(1)
	}
	done = make(chan bool)

	if len(os.Args) > 1 {
		if err := RootCmd.Execute(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		return
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Interactive roibot CLI. Type 'exit' to quit.")
	fmt.Println("Use 'help' to see available commands.")
	fmt.Println("---")

	for {
		if viewIsRunning {
			promptRow := gridHeightForPrompt(simulation) + 4
			fmt.Printf("\033[%d;0H\033[K", promptRow)
		}
		fmt.Print("> ")

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("Error reading input:", err)
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.ToLower(input) == "exit" {
			if viewIsRunning {
				close(done)
			}
			fmt.Println("Exiting interactive CLI. Goodbye!")
			return
		}

		RootCmd.SetArgs(strings.Split(input, " "))
		if err := RootCmd.Execute(); err != nil {
			fmt.Println(err)
		}
	}
}
