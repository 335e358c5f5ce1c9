package port

import (
	"context"

	"powerplan2mqtt/internal/core/domain"
)

// StorageDevice is the battery-side device contract: telemetry reads
// plus the discrete mode changes the execution path dispatches.
type StorageDevice interface {
	Open() error
	Close() error
	Telemetry(ctx context.Context) (*domain.TelemetrySnapshot, error)
	// ApplyAction switches the device operating mode. PowerKW is the
	// forced rate for charge/export actions, ignored otherwise.
	ApplyAction(ctx context.Context, action domain.Action, powerKW float64) error
}

// EVCharger is the EV-side execution contract. SetCurrent returns the
// value actually applied, which may differ from the request.
type EVCharger interface {
	SetCurrent(ctx context.Context, amps float64) (float64, error)
	Stop(ctx context.Context) error
	Connected(ctx context.Context) (bool, error)
}
