package service

import (
	"testing"
	"time"

	"powerplan2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassifyAction(t *testing.T) {

	bands := ActionBands{PowerThresholdKW: 0.1, CheapImportPrice: 0.15, ValuableExportPrice: 0.35}

	cases := []struct {
		name        string
		charge      float64
		discharge   float64
		importKW    float64
		exportKW    float64
		loadKW      float64
		importPrice float64
		exportPrice float64
		want        domain.Action
	}{
		{"grid charge at cheap price", 4, 0, 6, 0, 2, 0.10, 0.05, domain.ActionCharge},
		{"grid charge blocked by price band", 4, 0, 6, 0, 2, 0.30, 0.05, domain.ActionSelfConsumption},
		{"export at valuable price", 0, 4, 0, 2, 2, 0.50, 0.40, domain.ActionExport},
		{"export blocked by price band", 0, 4, 0, 2, 2, 0.50, 0.20, domain.ActionSelfConsumption},
		{"battery holds while grid covers load", 0, 0, 2, 0, 2, 0.30, 0.05, domain.ActionIdle},
		{"discharge covering load", 0, 2, 0, 0, 2, 0.30, 0.05, domain.ActionSelfConsumption},
		{"solar charge without grid draw", 3, 0, 0, 0, 1, 0.30, 0.05, domain.ActionSelfConsumption},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyAction(bands, tc.charge, tc.discharge, tc.importKW, tc.exportKW,
				tc.loadKW, tc.importPrice, tc.exportPrice)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyActionDisabledBands(t *testing.T) {

	assert := assert.New(t)

	bands := ActionBands{PowerThresholdKW: 0.1}
	got := ClassifyAction(bands, 4, 0, 6, 0, 2, 0.99, 0.05)
	assert.Equal(domain.ActionCharge, got, "zero band disables the price test")
}

func TestCoalesceWindows(t *testing.T) {

	assert := assert.New(t)

	grid, err := domain.NewTimeGrid(testGridStart(), time.Hour, 5*time.Hour)
	require.NoError(t, err, "grid build")

	intervals := []domain.IntervalDecision{
		{Action: domain.ActionCharge, BatteryKW: 4},
		{Action: domain.ActionCharge, BatteryKW: 2},
		{Action: domain.ActionExport, BatteryKW: -3},
		{Action: domain.ActionExport, BatteryKW: -3},
		{Action: domain.ActionSelfConsumption, BatteryKW: 0},
	}
	windows := CoalesceWindows(grid, intervals)
	assert.Equal(3, len(windows), "adjacent same-action runs merge")

	assert.Equal(domain.ActionCharge, windows[0].Action, "first window action")
	assert.Equal(grid.TimeAt(0), windows[0].Start, "first window start")
	assert.Equal(grid.TimeAt(2), windows[0].End, "first window end")
	assert.InDelta(3.0, windows[0].AvgPowerKW, 1e-9, "first window average power")

	assert.Equal(domain.ActionExport, windows[1].Action, "second window action")
	assert.Equal(grid.TimeAt(2), windows[1].Start, "second window start")
	assert.Equal(grid.TimeAt(4), windows[1].End, "second window end")
	assert.InDelta(-3.0, windows[1].AvgPowerKW, 1e-9, "second window average power")

	assert.Equal(grid.End(), windows[2].End, "last window closes the horizon")
	assert.Nil(CoalesceWindows(grid, nil), "no intervals, no windows")
}

func TestBuildPlan(t *testing.T) {

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
		[]float64{0.10, 0.50},
		[]float64{0.05, 0.40},
		[]float64{0, 0},
		[]float64{2, 2},
		battery)

	sol, err := NewLPSolver(1, zap.NewNop()).Solve(p)
	require.NoError(t, err, "solve")

	bands := ActionBands{PowerThresholdKW: 0.1}
	now := testGridStart().Add(time.Minute)
	plan := BuildPlan(p, sol, bands, 7, now, domain.ConfidenceForecast, domain.ProvenanceSolver)

	assert.Equal(uint64(7), plan.Seq, "sequence carried over")
	assert.Equal(now, plan.CreatedAt, "created at")
	assert.Equal(p.Grid.N, len(plan.Intervals), "one decision per interval")
	assert.NotEmpty(plan.Windows, "windows built")
	assert.Equal(domain.ConfidenceForecast, plan.Confidence, "confidence carried over")
	assert.Equal(domain.ProvenanceSolver, plan.Provenance, "provenance carried over")

	for i, d := range plan.Intervals {
		assert.Equal(p.Grid.TimeAt(i), d.Time, "interval time at %d", i)
		assert.InDelta(sol.NetBatteryKW(i), d.BatteryKW, 1e-9, "net battery power at %d", i)
		assert.Equal(p.ImportPrice[i], d.ImportPriceKWh, "import price at %d", i)
	}
	assert.InDelta(sol.Cost, plan.Cost.PredictedCost, 1e-9, "predicted cost")
	assert.InDelta(baselineCost(p, p.Grid.N), plan.Cost.BaselineCost, 1e-9, "baseline cost")
	assert.InDelta(plan.Cost.BaselineCost-plan.Cost.PredictedCost, plan.Cost.Savings, 1e-9, "savings identity")
	assert.Greater(plan.Cost.Savings, 0.0, "arbitrage saves money")
}
