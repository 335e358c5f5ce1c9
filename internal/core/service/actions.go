package service

import (
	"time"

	"powerplan2mqtt/internal/core/domain"
)

// ActionBands are the tariff-dependent classification inputs. The power
// threshold separates deliberate moves from numerical noise. Price
// bands refine the flow-based classification; a band of 0 disables the
// price test for that action.
type ActionBands struct {
	PowerThresholdKW    float64
	CheapImportPrice    float64
	ValuableExportPrice float64
}

// ClassifyAction maps one interval of the continuous solution to a
// discrete operating action.
func ClassifyAction(bands ActionBands, chargeKW, dischargeKW, importKW, exportKW, loadKW, importPrice, exportPrice float64) domain.Action {
	thr := bands.PowerThresholdKW
	switch {
	case chargeKW > thr && importKW > loadKW+thr && priceInBand(importPrice, bands.CheapImportPrice, false):
		// grid provides more than the load needs: forced grid charge
		return domain.ActionCharge
	case dischargeKW > thr && exportKW > thr && priceInBand(exportPrice, bands.ValuableExportPrice, true):
		return domain.ActionExport
	case chargeKW < thr && dischargeKW < thr && importKW > thr:
		// battery holds state while the home draws from the grid
		return domain.ActionIdle
	default:
		return domain.ActionSelfConsumption
	}
}

func priceInBand(price float64, band float64, above bool) bool {
	if band <= 0 {
		return true
	}
	if above {
		return price >= band
	}
	return price <= band
}

// BuildPlan turns a solved problem into the published schedule:
// per-interval decisions, coalesced action windows and the 24 hour cost
// summary against the no-battery baseline.
func BuildPlan(p *domain.OptimizationProblem, sol *domain.Solution, bands ActionBands,
	seq uint64, now time.Time, confidence domain.Confidence, provenance domain.Provenance) *domain.SchedulePlan {

	n := p.Grid.N
	plan := &domain.SchedulePlan{
		Seq:        seq,
		CreatedAt:  now,
		Grid:       p.Grid,
		Intervals:  make([]domain.IntervalDecision, n),
		Provenance: provenance,
		Confidence: confidence,
	}
	for i := 0; i < n; i++ {
		action := ClassifyAction(bands, sol.BatteryCharge[i], sol.BatteryDischarge[i],
			sol.GridImport[i], sol.GridExport[i], p.Load[i], p.ImportPrice[i], p.ExportPrice[i])
		plan.Intervals[i] = domain.IntervalDecision{
			Time:           p.Grid.TimeAt(i),
			BatteryKW:      sol.NetBatteryKW(i),
			GridImportKW:   sol.GridImport[i],
			GridExportKW:   sol.GridExport[i],
			SoC:            sol.SoC[i],
			ImportPriceKWh: p.ImportPrice[i],
			Action:         action,
		}
	}
	plan.Windows = CoalesceWindows(p.Grid, plan.Intervals)

	day := n
	if perDay := int(24 * time.Hour / p.Grid.Interval); perDay < day {
		day = perDay
	}
	predicted := scheduleCost(p, sol, day)
	baseline := baselineCost(p, day)
	plan.Cost = domain.CostSummary{
		PredictedCost: predicted,
		BaselineCost:  baseline,
		Savings:       baseline - predicted,
	}
	return plan
}

// CoalesceWindows merges runs of adjacent intervals sharing an action
// into windows, the unit the execution interface dispatches.
func CoalesceWindows(grid domain.TimeGrid, intervals []domain.IntervalDecision) []domain.ActionWindow {
	if len(intervals) == 0 {
		return nil
	}
	var windows []domain.ActionWindow
	start := 0
	for i := 1; i <= len(intervals); i++ {
		if i < len(intervals) && intervals[i].Action == intervals[start].Action {
			continue
		}
		sum := 0.0
		for j := start; j < i; j++ {
			sum += intervals[j].BatteryKW
		}
		windows = append(windows, domain.ActionWindow{
			Start:      grid.TimeAt(start),
			End:        grid.TimeAt(i),
			Action:     intervals[start].Action,
			AvgPowerKW: sum / float64(i-start),
		})
		start = i
	}
	return windows
}
