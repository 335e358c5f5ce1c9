package device

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/pkg/sunspec_storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTelemetryMapping(t *testing.T) {

	assert := assert.New(t)

	client := sunspec_storage.CreateTestStorageClient()
	adapter := NewStorageDeviceAdapter(client, 600*time.Second, zap.NewNop())

	snap, err := adapter.Telemetry(context.Background())
	require.NoError(t, err, "telemetry read")

	assert.InDelta(0.50, snap.SoC, 1e-9, "soc scaled to fraction")
	assert.InDelta(0.20, snap.BackupReserve, 1e-9, "reserve scaled to fraction")
	assert.Equal(13500.0, snap.CapacityWh, "capacity")
	assert.Equal(1800.0, snap.SolarPowerW, "solar power")
	assert.Equal(650.0, snap.LoadPowerW, "load power")
	assert.Equal(-1150.0, snap.GridPowerW, "grid power sign preserved")
	assert.WithinDuration(time.Now(), snap.Time, time.Second, "snapshot timestamped")
}

func TestTelemetryReadError(t *testing.T) {

	assert := assert.New(t)

	client := sunspec_storage.CreateTestStorageClient()
	client.ReadError = fmt.Errorf("modbus timeout")
	adapter := NewStorageDeviceAdapter(client, 600*time.Second, zap.NewNop())

	snap, err := adapter.Telemetry(context.Background())
	assert.Nil(snap, "no snapshot")
	assert.NotNil(err, "read error surfaced")
}

func TestApplyActionControlModes(t *testing.T) {

	assert := assert.New(t)

	client := sunspec_storage.CreateTestStorageClient()
	adapter := NewStorageDeviceAdapter(client, 600*time.Second, zap.NewNop())

	err := adapter.ApplyAction(context.Background(), domain.ActionCharge, 3.5)
	require.NoError(t, err, "charge applied")
	assert.Equal(sunspec_storage.CONTROL_MODE_FORCE_CHARGE, client.LastControl.Mode, "charge mode")
	assert.Equal(uint32(3500), client.LastControl.TargetPowerWatt, "charge power in watts")
	assert.Equal(uint16(600), client.LastControl.RevertTimeSeconds, "revert timeout set")

	err = adapter.ApplyAction(context.Background(), domain.ActionExport, 2.0)
	require.NoError(t, err, "export applied")
	assert.Equal(sunspec_storage.CONTROL_MODE_FORCE_DISCHARGE, client.LastControl.Mode, "discharge mode")
	assert.Equal(uint32(2000), client.LastControl.TargetPowerWatt, "discharge power in watts")

	err = adapter.ApplyAction(context.Background(), domain.ActionIdle, 0)
	require.NoError(t, err, "hold applied")
	assert.Equal(sunspec_storage.CONTROL_MODE_HOLD, client.LastControl.Mode, "hold mode")

	err = adapter.ApplyAction(context.Background(), domain.ActionSelfConsumption, 0)
	require.NoError(t, err, "auto applied")
	assert.Equal(sunspec_storage.CONTROL_MODE_AUTO, client.LastControl.Mode, "auto mode")
	assert.Equal(uint16(0), client.LastControl.RevertTimeSeconds, "auto mode never reverts")
}

func TestApplyActionRejected(t *testing.T) {

	assert := assert.New(t)

	client := sunspec_storage.CreateTestStorageClient()
	client.WriteError = fmt.Errorf("register locked")
	adapter := NewStorageDeviceAdapter(client, 600*time.Second, zap.NewNop())

	err := adapter.ApplyAction(context.Background(), domain.ActionCharge, 3.5)
	assert.True(errors.Is(err, domain.ErrExecutionRejected), "rejection wrapped, got %v", err)
}
