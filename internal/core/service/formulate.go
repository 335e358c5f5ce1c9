package service

import (
	"fmt"

	"powerplan2mqtt/internal/core/domain"
)

// Site limits applied when the configuration does not set one.
const defaultMaxGridKW = 100.0

// BuildProblem translates an aligned forecast set and the battery model
// into one optimization problem. The problem is self-contained: the
// solver never sees the forecast providers or the device.
func BuildProblem(set *domain.ForecastSet, battery domain.BatteryModel, objective domain.Objective,
	maxImportKW float64, maxExportKW float64) (*domain.OptimizationProblem, error) {

	if err := validateBattery(battery); err != nil {
		return nil, domain.SolverInfeasibleError(err)
	}
	if maxImportKW <= 0 {
		maxImportKW = defaultMaxGridKW
	}

	n := set.Grid.N
	p := &domain.OptimizationProblem{
		Grid:        set.Grid,
		Battery:     battery,
		Objective:   objective,
		ImportPrice: make([]float64, n),
		ExportPrice: make([]float64, n),
		Solar:       make([]float64, n),
		Load:        make([]float64, n),
		MaxImportKW: maxImportKW,
		MaxExportKW: maxExportKW,
	}
	copy(p.ImportPrice, set.ImportPrice.Values)
	copy(p.ExportPrice, set.ExportPrice.Values)
	for i := 0; i < n; i++ {
		p.Solar[i] = nonNegative(set.Solar.Values[i])
		p.Load[i] = nonNegative(set.Load.Values[i])
	}
	return p, nil
}

func validateBattery(b domain.BatteryModel) error {
	if b.CapacityKWh <= 0 {
		return fmt.Errorf("battery capacity must be positive, got %.2f kWh", b.CapacityKWh)
	}
	if b.Efficiency <= 0 || b.Efficiency > 1 {
		return fmt.Errorf("battery efficiency must be in (0, 1], got %.2f", b.Efficiency)
	}
	if b.BackupReserve < 0 || b.BackupReserve > 1 {
		return fmt.Errorf("backup reserve must be in [0, 1], got %.2f", b.BackupReserve)
	}
	if b.SoC < 0 || b.SoC > 1 {
		return fmt.Errorf("state of charge must be in [0, 1], got %.2f", b.SoC)
	}
	if b.MaxChargeKW < 0 || b.MaxDischargeKW < 0 {
		return fmt.Errorf("rate limits must be non-negative")
	}
	return nil
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
