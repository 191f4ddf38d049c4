package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdwilson/roibot/internal/clock"
	"github.com/sdwilson/roibot/internal/config"
	"github.com/sdwilson/roibot/internal/sim"
)

// setupTest rebuilds a fresh simulation for each test, mirroring
// c-robotcli/robot_cli_test.go's setupTest (fresh warehouse + robot_map
// per test).
func setupTest(t *testing.T) {
	t.Helper()
	s, err := sim.New(config.Default(), "error")
	require.NoError(t, err)
	simulation = s
	viewIsRunning = false
}

// captureOutput is adapted verbatim from
// c-robotcli/robot_cli_test.go's helper of the same name.
func captureOutput() func() string {
	var buf bytes.Buffer
	r, w, _ := os.Pipe()
	stdout := os.Stdout
	os.Stdout = w

	return func() string {
		w.Close()
		os.Stdout = stdout
		io.Copy(&buf, r)
		r.Close()
		return buf.String()
	}
}

func TestStartStopViaRootCmd(t *testing.T) {
	setupTest(t)
	restore := captureOutput()
	RootCmd.SetArgs([]string{"start"})
	require.NoError(t, RootCmd.Execute())
	restore()

	require.Equal(t, clock.Running, simulation.Status().ClockState)

	restore = captureOutput()
	RootCmd.SetArgs([]string{"stop"})
	require.NoError(t, RootCmd.Execute())
	restore()

	require.Equal(t, clock.Stopped, simulation.Status().ClockState)
}

func TestSpeedCommandRejectsNonNumericArgument(t *testing.T) {
	setupTest(t)
	restore := captureOutput()
	RootCmd.SetArgs([]string{"speed", "fast"})
	err := RootCmd.Execute()
	restore()

	require.Error(t, err)
}

func TestSpeedCommandClamps(t *testing.T) {
	setupTest(t)
	restore := captureOutput()
	RootCmd.SetArgs([]string{"speed", "50"})
	require.NoError(t, RootCmd.Execute())
	restore()

	require.Equal(t, clock.MaxSpeed, simulation.Status().Speed)
}

func TestStatusCommandPrintsSnapshot(t *testing.T) {
	setupTest(t)
	restore := captureOutput()
	RootCmd.SetArgs([]string{"status"})
	require.NoError(t, RootCmd.Execute())
	out := restore()

	require.Contains(t, out, "clock=")
	require.Contains(t, out, "orders/hr=")
}

func TestShutdownCommandStopsClock(t *testing.T) {
	setupTest(t)
	RootCmd.SetArgs([]string{"start"})
	restore := captureOutput()
	require.NoError(t, RootCmd.Execute())
	restore()

	restore = captureOutput()
	RootCmd.SetArgs([]string{"shutdown"})
	require.NoError(t, RootCmd.Execute())
	restore()

	require.Equal(t, clock.Stopped, simulation.Status().ClockState)
}

func TestConfigCommandRejectsMissingFile(t *testing.T) {
	setupTest(t)
	restore := captureOutput()
	RootCmd.SetArgs([]string{"config", "/no/such/file.yaml"})
	err := RootCmd.Execute()
	restore()

	require.Error(t, err)
}
