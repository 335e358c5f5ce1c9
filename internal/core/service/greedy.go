package service

import (
	"sort"

	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"

	"go.uber.org/zap"
)

// minGreedyPowerKW filters out assignments too small to matter.
const minGreedyPowerKW = 0.01

// GreedyPlanner is the solver-free fallback. It ranks intervals by
// price and assigns discharge to the most valuable ones and charge to
// the cheapest ones, then computes grid flows in time order under the
// SoC bounds. Feasible but generally suboptimal; plans built from it
// are flagged as degraded.
type GreedyPlanner struct {
	logger *zap.Logger
}

var _ port.ScheduleSolver = (*GreedyPlanner)(nil)

func NewGreedyPlanner(logger *zap.Logger) *GreedyPlanner {
	return &GreedyPlanner{logger: logger.With(zap.String("service", "greedy_planner"))}
}

func (g *GreedyPlanner) Solve(p *domain.OptimizationProblem) (*domain.Solution, error) {
	n := p.Grid.N
	dt := p.Grid.IntervalHours()
	b := clampBattery(p.Battery)
	eff := b.Efficiency

	charge := make([]float64, n)
	discharge := make([]float64, n)

	// Reference price for profitability: mean import price. Discharge
	// must beat it after round-trip losses, charge must undercut it.
	mean := 0.0
	for _, v := range p.ImportPrice {
		mean += v
	}
	mean /= float64(n)
	dischargeFloor := mean / eff
	chargeCeil := mean * eff

	// dischargeValue is what one kWh released in interval i earns:
	// avoided import while there is net load, export price otherwise.
	dischargeValue := func(i int) float64 {
		if p.Load[i]-p.Solar[i] > 0 {
			return p.ImportPrice[i]
		}
		return p.ExportPrice[i]
	}

	byValue := sortedIndices(n, func(a, b int) bool { return dischargeValue(a) > dischargeValue(b) })
	byImport := sortedIndices(n, func(a, b int) bool { return p.ImportPrice[a] < p.ImportPrice[b] })

	tracker := b.SoC
	for _, i := range byValue {
		if dischargeValue(i) <= dischargeFloor {
			break
		}
		room := (tracker - b.BackupReserve) * b.CapacityKWh * eff / dt
		kw := min2(b.MaxDischargeKW, nonNegative(room))
		if kw > minGreedyPowerKW {
			discharge[i] = kw
			tracker -= kw * dt / (eff * b.CapacityKWh)
		}
	}
	for _, i := range byImport {
		if p.ImportPrice[i] >= chargeCeil {
			break
		}
		if discharge[i] > 0 {
			continue
		}
		room := (1.0 - tracker) * b.CapacityKWh / (eff * dt)
		kw := min2(b.MaxChargeKW, nonNegative(room))
		if kw > minGreedyPowerKW {
			charge[i] = kw
			tracker += kw * eff * dt / b.CapacityKWh
		}
	}

	// Time-order pass: clamp assignments that the running SoC cannot
	// support, then derive grid flows from the power balance.
	sol := &domain.Solution{
		GridImport:       make([]float64, n),
		GridExport:       make([]float64, n),
		BatteryCharge:    charge,
		BatteryDischarge: discharge,
		Feasible:         true,
	}
	soc := b.SoC
	for i := 0; i < n; i++ {
		if discharge[i] > 0 {
			room := (soc - b.BackupReserve) * b.CapacityKWh * eff / dt
			discharge[i] = min2(discharge[i], nonNegative(room))
		}
		if charge[i] > 0 {
			room := (1.0 - soc) * b.CapacityKWh / (eff * dt)
			charge[i] = min2(charge[i], nonNegative(room))
		}
		net := p.Load[i] - p.Solar[i] + charge[i] - discharge[i]
		if net > 0 {
			sol.GridImport[i] = net
		} else {
			sol.GridExport[i] = -net
		}
		soc += (charge[i]*eff - discharge[i]/eff) * dt / b.CapacityKWh
		soc = clamp01(soc)
	}
	sol.SoC = integrateSoC(b, dt, charge, discharge)
	sol.Cost = scheduleCost(p, sol, n)

	g.logger.Debug("greedy schedule built", zap.Int("intervals", n), zap.Float64("cost", sol.Cost))
	return sol, nil
}

// clampBattery forces the model into a usable range so the fallback
// still yields a plan on misconfigured input.
func clampBattery(b domain.BatteryModel) domain.BatteryModel {
	if b.CapacityKWh <= 0 {
		b.CapacityKWh = 0.001
	}
	if b.Efficiency <= 0 || b.Efficiency > 1 {
		b.Efficiency = 1
	}
	b.BackupReserve = clamp01(b.BackupReserve)
	b.SoC = clamp01(b.SoC)
	if b.SoC < b.BackupReserve {
		b.SoC = b.BackupReserve
	}
	return b
}

func sortedIndices(n int, less func(a, b int) bool) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return less(idx[a], idx[b]) })
	return idx
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
