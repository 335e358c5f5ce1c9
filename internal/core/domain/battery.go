package domain

import "time"

// BatteryModel is the physical and operational description of the
// storage device one planning pass works against. It is a read-only
// input, re-fetched each cycle because SoC drifts in real time.
type BatteryModel struct {
	CapacityKWh    float64
	MaxChargeKW    float64
	MaxDischargeKW float64
	// Efficiency is the one-way conversion efficiency, applied on both
	// charge and discharge.
	Efficiency    float64
	BackupReserve float64
	SoC           float64
}

// UsableDischargeKWh returns the energy available above the reserve.
func (b BatteryModel) UsableDischargeKWh() float64 {
	e := (b.SoC - b.BackupReserve) * b.CapacityKWh
	if e < 0 {
		return 0
	}
	return e
}

// HeadroomKWh returns the energy that can still be stored.
func (b BatteryModel) HeadroomKWh() float64 {
	e := (1.0 - b.SoC) * b.CapacityKWh
	if e < 0 {
		return 0
	}
	return e
}

// TelemetrySnapshot is one live reading from the storage device plus
// site power flow, shared with the EV coordinator and the status
// surface. Powers in watts, device sign conventions normalized:
// BatteryPowerW > 0 means charging, GridPowerW > 0 means importing.
type TelemetrySnapshot struct {
	Time          time.Time
	SoC           float64
	CapacityWh    float64
	MaxChargeW    float64
	MaxDischargeW float64
	BackupReserve float64
	BatteryPowerW float64
	SolarPowerW   float64
	LoadPowerW    float64
	GridPowerW    float64
}

// Age returns how old the snapshot is at the given instant.
func (t TelemetrySnapshot) Age(now time.Time) time.Duration {
	return now.Sub(t.Time)
}

// Battery builds the planner-facing model from the snapshot, falling
// back to configured defaults for fields the device does not report.
func (t TelemetrySnapshot) Battery(defaults BatteryModel) BatteryModel {
	m := defaults
	if t.CapacityWh > 0 {
		m.CapacityKWh = t.CapacityWh / 1000.0
	}
	if t.MaxChargeW > 0 {
		m.MaxChargeKW = t.MaxChargeW / 1000.0
	}
	if t.MaxDischargeW > 0 {
		m.MaxDischargeKW = t.MaxDischargeW / 1000.0
	}
	if t.BackupReserve > 0 {
		m.BackupReserve = t.BackupReserve
	}
	m.SoC = t.SoC
	return m
}
