package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sdwilson/roibot/internal/config"
)

// rawYAML mirrors spec.md §6's lower_snake_case YAML schema; config.Raw
// itself carries no yaml tags (it is validated input, not a serialization
// format), so this is the one place the two naming conventions meet.
type rawYAML struct {
	Timing struct {
		TargetFPS int     `yaml:"target_fps"`
		Speed     float64 `yaml:"simulation_speed"`
	} `yaml:"timing"`
	Warehouse struct {
		Width        int `yaml:"width"`
		Height       int `yaml:"height"`
		PackoutAisle int `yaml:"packout_aisle"`
		PackoutRack  int `yaml:"packout_rack"`
	} `yaml:"warehouse"`
	Robot struct {
		Speed     float64 `yaml:"speed"`
		PickTimeS float64 `yaml:"pick_time_s"`
		MaxItems  int     `yaml:"max_items"`
	} `yaml:"robot"`
	Orders struct {
		IntervalS float64 `yaml:"interval_s"`
		MinItems  int     `yaml:"min_items"`
		MaxItems  int     `yaml:"max_items"`
		QueueCap  int     `yaml:"queue_cap"`
	} `yaml:"orders"`
	Navigation struct {
		AisleTraversalS   float64 `yaml:"aisle_traversal_s"`
		DirectionCooldown float64 `yaml:"direction_cooldown_s"`
	} `yaml:"navigation"`
	Analytics struct {
		WindowS    float64 `yaml:"window_s"`
		WarnTickMS float64 `yaml:"warn_tick_ms"`
	} `yaml:"analytics"`
}

// loadConfigFile reads a YAML file and overlays every non-zero field it
// sets onto spec.md §6's defaults; fields the file omits or sets to zero
// keep their default.
// Validation itself happens later, in config.Load / sim.New — this
// function only translates schema names.
func loadConfigFile(path string) (config.Raw, error) {
	raw := config.Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return raw, fmt.Errorf("reading config file: %w", err)
	}
	var doc rawYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return raw, fmt.Errorf("parsing config file: %w", err)
	}

	if doc.Timing.TargetFPS != 0 {
		raw.Timing.TargetFPS = doc.Timing.TargetFPS
	}
	if doc.Timing.Speed != 0 {
		raw.Timing.SimulationSpeed = doc.Timing.Speed
	}
	if doc.Warehouse.Width != 0 {
		raw.Warehouse.Width = doc.Warehouse.Width
	}
	if doc.Warehouse.Height != 0 {
		raw.Warehouse.Height = doc.Warehouse.Height
	}
	if doc.Warehouse.PackoutAisle != 0 {
		raw.Warehouse.PackoutAisle = doc.Warehouse.PackoutAisle
	}
	if doc.Warehouse.PackoutRack != 0 {
		raw.Warehouse.PackoutRack = doc.Warehouse.PackoutRack
	}
	if doc.Robot.Speed != 0 {
		raw.Robot.Speed = doc.Robot.Speed
	}
	if doc.Robot.PickTimeS != 0 {
		raw.Robot.PickTimeS = doc.Robot.PickTimeS
	}
	if doc.Robot.MaxItems != 0 {
		raw.Robot.MaxItems = doc.Robot.MaxItems
	}
	if doc.Orders.IntervalS != 0 {
		raw.Orders.IntervalS = doc.Orders.IntervalS
	}
	if doc.Orders.MinItems != 0 {
		raw.Orders.MinItems = doc.Orders.MinItems
	}
	if doc.Orders.MaxItems != 0 {
		raw.Orders.MaxItems = doc.Orders.MaxItems
	}
	if doc.Orders.QueueCap != 0 {
		raw.Orders.QueueCap = doc.Orders.QueueCap
	}
	if doc.Navigation.AisleTraversalS != 0 {
		raw.Navigation.AisleTraversalS = doc.Navigation.AisleTraversalS
	}
	if doc.Navigation.DirectionCooldown != 0 {
		raw.Navigation.DirectionCooldown = doc.Navigation.DirectionCooldown
	}
	if doc.Analytics.WindowS != 0 {
		raw.Analytics.WindowS = doc.Analytics.WindowS
	}
	if doc.Analytics.WarnTickMS != 0 {
		raw.Analytics.WarnTickMS = doc.Analytics.WarnTickMS
	}
	return raw, nil
}
