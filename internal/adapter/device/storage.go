package device

import (
	"context"
	"time"

	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"
	"powerplan2mqtt/pkg/sunspec_storage"

	"go.uber.org/zap"
)

// StorageDeviceAdapter exposes a sunspec storage client through the
// planner's device contract. RevertSeconds must outlive the dispatch
// cadence so the device falls back to auto mode if the controller dies.
type StorageDeviceAdapter struct {
	client        sunspec_storage.StorageController
	revertSeconds uint16
	logger        *zap.Logger
}

var _ port.StorageDevice = (*StorageDeviceAdapter)(nil)

func NewStorageDeviceAdapter(client sunspec_storage.StorageController, revert time.Duration, logger *zap.Logger) *StorageDeviceAdapter {
	return &StorageDeviceAdapter{
		client:        client,
		revertSeconds: uint16(revert.Seconds()),
		logger:        logger.With(zap.String("adapter", "storage_device")),
	}
}

func (a *StorageDeviceAdapter) Open() error {
	return a.client.Open()
}

func (a *StorageDeviceAdapter) Close() error {
	return a.client.Close()
}

func (a *StorageDeviceAdapter) Telemetry(ctx context.Context) (*domain.TelemetrySnapshot, error) {
	state, err := a.client.GetState()
	if err != nil {
		return nil, err
	}
	return &domain.TelemetrySnapshot{
		Time:          time.Now(),
		SoC:           state.StateOfCharge / 100.0,
		CapacityWh:    state.CapacityWattHour,
		MaxChargeW:    state.MaxChargePowerW,
		MaxDischargeW: state.MaxDischargePowerW,
		BackupReserve: state.BackupReserve / 100.0,
		BatteryPowerW: state.BatteryPowerWatt,
		SolarPowerW:   state.SolarPowerWatt,
		LoadPowerW:    state.LoadPowerWatt,
		GridPowerW:    state.GridPowerWatt,
	}, nil
}

func (a *StorageDeviceAdapter) ApplyAction(ctx context.Context, action domain.Action, powerKW float64) error {
	params := sunspec_storage.StorageControlParams{
		RevertTimeSeconds: a.revertSeconds,
	}
	switch action {
	case domain.ActionCharge:
		params.Mode = sunspec_storage.CONTROL_MODE_FORCE_CHARGE
		params.TargetPowerWatt = uint32(powerKW * 1000)
	case domain.ActionExport:
		params.Mode = sunspec_storage.CONTROL_MODE_FORCE_DISCHARGE
		params.TargetPowerWatt = uint32(powerKW * 1000)
	case domain.ActionIdle:
		params.Mode = sunspec_storage.CONTROL_MODE_HOLD
	default:
		params.Mode = sunspec_storage.CONTROL_MODE_AUTO
		params.RevertTimeSeconds = 0
	}
	if err := a.client.SetControl(params); err != nil {
		return domain.ExecutionRejectedError(action, err)
	}
	a.logger.Debug("storage control applied", zap.String("action", action.String()),
		zap.Float64("power_kw", powerKW))
	return nil
}
