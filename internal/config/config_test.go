package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sdwilson/roibot/internal/apperrors"
	"github.com/sdwilson/roibot/internal/config"
)

func TestDefaultConfigValidates(t *testing.T) {
	reg, err := config.Load(config.Default())
	require.NoError(t, err)
	require.Equal(t, 60, reg.Raw().Timing.TargetFPS)
}

func TestLoadRejectsOutOfDomainSpeed(t *testing.T) {
	raw := config.Default()
	raw.Timing.SimulationSpeed = 50.0
	_, err := config.Load(raw)
	require.Error(t, err)
	kind, ok := apperrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, apperrors.KindValidation, kind)
}

func TestLoadRejectsOrdersMaxBelowMin(t *testing.T) {
	raw := config.Default()
	raw.Orders.MinItems = 5
	raw.Orders.MaxItems = 2
	_, err := config.Load(raw)
	require.Error(t, err)
}

func TestLiveReloadSwapsAtomically(t *testing.T) {
	reg, err := config.Load(config.Default())
	require.NoError(t, err)
	live := config.NewLive(reg)

	next := config.Default()
	next.Timing.TargetFPS = 30
	require.NoError(t, live.Reload(next))
	require.Equal(t, 30, live.Get().Raw().Timing.TargetFPS)
}

func TestLiveReloadKeepsPriorOnFailure(t *testing.T) {
	reg, err := config.Load(config.Default())
	require.NoError(t, err)
	live := config.NewLive(reg)

	bad := config.Default()
	bad.Warehouse.Width = 0
	require.Error(t, live.Reload(bad))
	require.Equal(t, 25, live.Get().Raw().Warehouse.Width, "prior registry must remain active")
}
