package service

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"powerplan2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testGridStart() time.Time {
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
}

func hourlyProblem(t *testing.T, importPrice, exportPrice, solar, load []float64, b domain.BatteryModel) *domain.OptimizationProblem {
	n := len(importPrice)
	grid, err := domain.NewTimeGrid(testGridStart(), time.Hour, time.Duration(n)*time.Hour)
	require.NoError(t, err, "grid build")
	return &domain.OptimizationProblem{
		Grid:        grid,
		Battery:     b,
		Objective:   domain.ObjectiveCost,
		ImportPrice: importPrice,
		ExportPrice: exportPrice,
		Solar:       solar,
		Load:        load,
		MaxImportKW: 10,
		MaxExportKW: 10,
	}
}

func assertPowerBalance(t *testing.T, p *domain.OptimizationProblem, sol *domain.Solution) {
	for i := 0; i < p.Grid.N; i++ {
		net := sol.GridImport[i] - sol.GridExport[i] - sol.BatteryCharge[i] + sol.BatteryDischarge[i]
		assert.InDelta(t, p.Load[i]-p.Solar[i], net, 1e-6, "power balance at interval %d", i)
	}
}

func assertSoCBounds(t *testing.T, b domain.BatteryModel, sol *domain.Solution) {
	for i, soc := range sol.SoC {
		assert.GreaterOrEqual(t, soc, b.BackupReserve-1e-6, "soc above reserve at interval %d", i)
		assert.LessOrEqual(t, soc, 1.0+1e-6, "soc below full at interval %d", i)
	}
}

func TestLPSolverChargesCheapDischargesExpensive(t *testing.T) {

	assert := assert.New(t)

	battery := domain.BatteryModel{
		CapacityKWh:    10,
		MaxChargeKW:    5,
		MaxDischargeKW: 5,
		Efficiency:     1.0,
		BackupReserve:  0.2,
		SoC:            0.5,
	}
	p := hourlyProblem(t,
		[]float64{0.10, 0.50, 0.50, 0.10},
		[]float64{0.05, 0.40, 0.40, 0.05},
		[]float64{0, 0, 0, 0},
		[]float64{2, 2, 2, 2},
		battery)

	solver := NewLPSolver(1, zap.NewNop())
	sol, err := solver.Solve(p)
	require.NoError(t, err, "solve")
	assert.True(sol.Feasible, "feasible")

	assert.Greater(sol.BatteryCharge[0], 0.0, "charge in the cheap hour")
	assert.Greater(sol.BatteryDischarge[1]+sol.BatteryDischarge[2], 0.0, "discharge in the expensive hours")
	assert.Equal(0.0, sol.BatteryDischarge[0], "no discharge in the cheap hour")

	assertPowerBalance(t, p, sol)
	assertSoCBounds(t, battery, sol)

	assert.Less(sol.Cost, baselineCost(p, p.Grid.N), "schedule beats the no-battery baseline")
}

func TestLPSolverSelfConsumptionShiftsSolar(t *testing.T) {

	assert := assert.New(t)

	battery := domain.BatteryModel{
		CapacityKWh:    10,
		MaxChargeKW:    5,
		MaxDischargeKW: 5,
		Efficiency:     1.0,
		BackupReserve:  0.1,
		SoC:            0.2,
	}
	p := hourlyProblem(t,
		[]float64{0.30, 0.30},
		[]float64{0.08, 0.08},
		[]float64{5, 0},
		[]float64{1, 3},
		battery)
	p.Objective = domain.ObjectiveSelfConsumption

	solver := NewLPSolver(1, zap.NewNop())
	sol, err := solver.Solve(p)
	require.NoError(t, err, "solve")

	assert.InDelta(0.0, sol.GridExport[0], 1e-6, "solar surplus stored, not exported")
	assert.InDelta(0.0, sol.GridImport[1], 1e-6, "evening load served from the battery")
	assert.InDelta(4.0, sol.NetBatteryKW(0), 1e-6, "full surplus charged")
	assert.InDelta(-3.0, sol.NetBatteryKW(1), 1e-6, "full load discharged")

	assertPowerBalance(t, p, sol)
	assertSoCBounds(t, battery, sol)
}

func TestLPSolverRespectsRateLimits(t *testing.T) {

	assert := assert.New(t)

	battery := domain.BatteryModel{
		CapacityKWh:    50,
		MaxChargeKW:    2,
		MaxDischargeKW: 2,
		Efficiency:     1.0,
		BackupReserve:  0.1,
		SoC:            0.5,
	}
	p := hourlyProblem(t,
		[]float64{0.05, 0.60, 0.05, 0.60},
		[]float64{0.04, 0.50, 0.04, 0.50},
		[]float64{0, 0, 0, 0},
		[]float64{1, 1, 1, 1},
		battery)

	solver := NewLPSolver(1, zap.NewNop())
	sol, err := solver.Solve(p)
	require.NoError(t, err, "solve")

	for i := 0; i < p.Grid.N; i++ {
		assert.LessOrEqual(sol.BatteryCharge[i], battery.MaxChargeKW+1e-6, "charge rate at interval %d", i)
		assert.LessOrEqual(sol.BatteryDischarge[i], battery.MaxDischargeKW+1e-6, "discharge rate at interval %d", i)
		assert.LessOrEqual(sol.GridImport[i], p.MaxImportKW+1e-6, "import limit at interval %d", i)
		assert.LessOrEqual(sol.GridExport[i], p.MaxExportKW+1e-6, "export limit at interval %d", i)
	}
	assertSoCBounds(t, battery, sol)
}

func TestLPSolverNoUnprofitableExport(t *testing.T) {

	rng := rand.New(rand.NewSource(7))
	solver := NewLPSolver(1, zap.NewNop())

	for trial := 0; trial < 25; trial++ {
		n := 3 + rng.Intn(6)
		price := 0.05 + rng.Float64()*0.45
		battery := domain.BatteryModel{
			CapacityKWh:    8 + rng.Float64()*8,
			MaxChargeKW:    5,
			MaxDischargeKW: 5,
			Efficiency:     0.85 + rng.Float64()*0.1,
			BackupReserve:  0.1 + rng.Float64()*0.3,
		}
		// start at the reserve so any export would need a charge
		// round trip, which flat prices never pay for
		battery.SoC = battery.BackupReserve

		importPrice := make([]float64, n)
		exportPrice := make([]float64, n)
		solar := make([]float64, n)
		load := make([]float64, n)
		for i := 0; i < n; i++ {
			importPrice[i] = price
			exportPrice[i] = price * (0.3 + rng.Float64()*0.6)
			load[i] = 0.5 + rng.Float64()*3
		}

		p := hourlyProblem(t, importPrice, exportPrice, solar, load, battery)
		sol, err := solver.Solve(p)
		require.NoError(t, err, "trial %d solve", trial)

		for i := 0; i < n; i++ {
			assert.InDelta(t, 0.0, sol.GridExport[i], 1e-6, "trial %d no export at %d", trial, i)
		}
		assert.InDelta(t, baselineCost(p, n), sol.Cost, 1e-4, "trial %d flat prices leave nothing to gain", trial)
	}
}

func TestLPSolverInfeasibleProblem(t *testing.T) {

	assert := assert.New(t)

	battery := domain.BatteryModel{
		CapacityKWh:    10,
		MaxChargeKW:    5,
		MaxDischargeKW: 0,
		Efficiency:     1.0,
		BackupReserve:  0.2,
		SoC:            0.5,
	}
	p := hourlyProblem(t,
		[]float64{0.30, 0.30},
		[]float64{0.08, 0.08},
		[]float64{0, 0},
		[]float64{20, 20},
		battery)
	p.MaxImportKW = 1
	p.MaxExportKW = 1

	solver := NewLPSolver(1, zap.NewNop())
	sol, err := solver.Solve(p)
	assert.Nil(sol, "no solution")
	assert.True(errors.Is(err, domain.ErrSolverInfeasible), "infeasible error, got %v", err)
}

func TestLPSolverBlockCoarsening(t *testing.T) {

	assert := assert.New(t)

	battery := domain.BatteryModel{
		CapacityKWh:    10,
		MaxChargeKW:    5,
		MaxDischargeKW: 5,
		Efficiency:     0.95,
		BackupReserve:  0.2,
		SoC:            0.5,
	}
	grid, err := domain.NewTimeGrid(testGridStart(), 15*time.Minute, 2*time.Hour)
	require.NoError(t, err, "grid build")
	assert.Equal(8, grid.N, "fine interval count")

	p := &domain.OptimizationProblem{
		Grid:        grid,
		Battery:     battery,
		Objective:   domain.ObjectiveCost,
		ImportPrice: []float64{0.10, 0.10, 0.10, 0.10, 0.50, 0.50, 0.50, 0.50},
		ExportPrice: []float64{0.05, 0.05, 0.05, 0.05, 0.40, 0.40, 0.40, 0.40},
		Solar:       make([]float64, 8),
		Load:        []float64{2, 2, 2, 2, 2, 2, 2, 2},
		MaxImportKW: 10,
		MaxExportKW: 10,
	}

	solver := NewLPSolver(4, zap.NewNop())
	sol, err := solver.Solve(p)
	require.NoError(t, err, "solve")

	assert.Equal(8, len(sol.BatteryCharge), "solution expanded to the fine grid")
	assert.Equal(8, len(sol.SoC), "soc path on the fine grid")
	assert.InDelta(sol.BatteryCharge[0], sol.BatteryCharge[3], 1e-9, "uniform power within a block")

	assertPowerBalance(t, p, sol)
	assertSoCBounds(t, battery, sol)
}

func TestBaselineCost(t *testing.T) {

	assert := assert.New(t)

	battery := domain.BatteryModel{CapacityKWh: 10, MaxChargeKW: 5, MaxDischargeKW: 5, Efficiency: 1, BackupReserve: 0.1, SoC: 0.5}
	p := hourlyProblem(t,
		[]float64{0.20, 0.40},
		[]float64{0.10, 0.10},
		[]float64{4, 0},
		[]float64{1, 2},
		battery)

	// hour 0 exports 3 kWh at 0.10, hour 1 imports 2 kWh at 0.40
	assert.InDelta(-0.30+0.80, baselineCost(p, p.Grid.N), 1e-9, "baseline cost")
}

func TestIntegrateSoCClamps(t *testing.T) {

	assert := assert.New(t)

	b := domain.BatteryModel{CapacityKWh: 1, Efficiency: 1, SoC: 0.9}
	soc := integrateSoC(b, 1.0, []float64{5, 0}, []float64{0, 10})
	assert.Equal(1.0, soc[0], "clamped at full")
	assert.Equal(0.0, soc[1], "clamped at empty")
}
