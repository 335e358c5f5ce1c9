package service

import (
	"errors"

	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// powerEps is the magnitude below which a solved power is treated as
// zero. Dense simplex leaves small numerical residue on inactive
// variables.
const powerEps = 1e-6

// simplexTol is the pivot tolerance handed to lp.Simplex. A zero
// tolerance makes the dense simplex misread degenerate pivots on
// box-bounded problems as unbounded rays.
const simplexTol = 1e-9

// LPSolver formulates the schedule as a linear program and solves it
// with a dense simplex. To keep the tableau tractable over a 48 hour
// horizon, intervals are coarsened into solver blocks and the block
// solution is expanded back onto the fine grid.
type LPSolver struct {
	blockFactor int
	logger      *zap.Logger
}

var _ port.ScheduleSolver = (*LPSolver)(nil)

func NewLPSolver(blockFactor int, logger *zap.Logger) *LPSolver {
	if blockFactor < 1 {
		blockFactor = 1
	}
	return &LPSolver{
		blockFactor: blockFactor,
		logger:      logger.With(zap.String("service", "lp_solver")),
	}
}

func (s *LPSolver) Solve(p *domain.OptimizationProblem) (*domain.Solution, error) {
	cp := coarsenProblem(p, s.blockFactor)
	s.logger.Debug("solving schedule", zap.Int("intervals", p.Grid.N),
		zap.Int("solver_blocks", cp.Grid.N), zap.String("objective", p.Objective.String()))

	coarse, err := solveDense(cp)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nil, domain.SolverInfeasibleError(err)
		}
		return nil, domain.SolverUnavailableError(err)
	}

	sol := expandSolution(p, cp, coarse)
	sol.SoC = integrateSoC(p.Battery, p.Grid.IntervalHours(), sol.BatteryCharge, sol.BatteryDischarge)
	sol.Cost = scheduleCost(p, sol, p.Grid.N)
	sol.Feasible = true
	return sol, nil
}

// solveDense builds the general-form LP for the problem and runs the
// simplex on its standard-form conversion.
//
// Variable layout: x = [grid_import, grid_export, charge, discharge],
// each a block of n per-interval values in kW.
func solveDense(p *domain.OptimizationProblem) (*domain.Solution, error) {
	n := p.Grid.N
	dt := p.Grid.IntervalHours()
	b := p.Battery
	nv := 4 * n

	gi := func(i int) int { return i }
	ge := func(i int) int { return n + i }
	bc := func(i int) int { return 2*n + i }
	bd := func(i int) int { return 3*n + i }

	c := make([]float64, nv)
	for i := 0; i < n; i++ {
		if p.Objective == domain.ObjectiveSelfConsumption {
			c[gi(i)] = dt
			c[ge(i)] = dt
		} else {
			c[gi(i)] = p.ImportPrice[i] * dt
			c[ge(i)] = -p.ExportPrice[i] * dt
		}
	}

	// Power balance per interval:
	// grid_import - grid_export - charge + discharge = load - solar
	aEq := mat.NewDense(n, nv, nil)
	bEq := make([]float64, n)
	for i := 0; i < n; i++ {
		aEq.Set(i, gi(i), 1)
		aEq.Set(i, ge(i), -1)
		aEq.Set(i, bc(i), -1)
		aEq.Set(i, bd(i), 1)
		bEq[i] = p.Load[i] - p.Solar[i]
	}

	// Inequalities G x <= h: cumulative SoC bounds per interval, then
	// upper and lower variable bounds.
	rows := 2*n + 2*nv
	g := mat.NewDense(rows, nv, nil)
	h := make([]float64, rows)

	chargePerKW := b.Efficiency * dt / b.CapacityKWh
	dischargePerKW := dt / (b.Efficiency * b.CapacityKWh)
	for t := 0; t < n; t++ {
		up := 2 * t
		down := 2*t + 1
		for i := 0; i <= t; i++ {
			g.Set(up, bc(i), chargePerKW)
			g.Set(up, bd(i), -dischargePerKW)
			g.Set(down, bc(i), -chargePerKW)
			g.Set(down, bd(i), dischargePerKW)
		}
		h[up] = 1.0 - b.SoC
		h[down] = b.SoC - b.BackupReserve
	}

	exportCap := p.MaxExportKW
	if exportCap <= 0 {
		exportCap = p.MaxImportKW
	}
	for i := 0; i < n; i++ {
		row := 2*n + 4*i
		g.Set(row, gi(i), 1)
		h[row] = p.MaxImportKW
		g.Set(row+1, ge(i), 1)
		h[row+1] = exportCap
		g.Set(row+2, bc(i), 1)
		h[row+2] = b.MaxChargeKW
		g.Set(row+3, bd(i), 1)
		h[row+3] = b.MaxDischargeKW
	}
	for j := 0; j < nv; j++ {
		row := 2*n + 4*n + j
		g.Set(row, j, -1)
		h[row] = 0
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, aEq, bEq)
	_, xStd, err := lp.Simplex(cStd, aStd, bStd, simplexTol, nil)
	if err != nil {
		return nil, err
	}

	// Convert maps each free variable to a positive/negative pair; the
	// original value is their difference.
	x := make([]float64, nv)
	for j := 0; j < nv; j++ {
		v := xStd[j] - xStd[nv+j]
		if v < powerEps {
			v = 0
		}
		x[j] = v
	}

	sol := &domain.Solution{
		GridImport:       x[gi(0) : gi(0)+n],
		GridExport:       x[ge(0) : ge(0)+n],
		BatteryCharge:    x[bc(0) : bc(0)+n],
		BatteryDischarge: x[bd(0) : bd(0)+n],
	}
	return sol, nil
}

// coarsenProblem averages the per-interval inputs into solver blocks.
// A factor of 1 returns the problem unchanged.
func coarsenProblem(p *domain.OptimizationProblem, factor int) *domain.OptimizationProblem {
	if factor <= 1 || p.Grid.N <= factor {
		return p
	}
	grid := p.Grid.Coarsen(factor)
	cp := &domain.OptimizationProblem{
		Grid:        grid,
		Battery:     p.Battery,
		Objective:   p.Objective,
		ImportPrice: blockMeans(p.ImportPrice, factor, grid.N),
		ExportPrice: blockMeans(p.ExportPrice, factor, grid.N),
		Solar:       blockMeans(p.Solar, factor, grid.N),
		Load:        blockMeans(p.Load, factor, grid.N),
		MaxImportKW: p.MaxImportKW,
		MaxExportKW: p.MaxExportKW,
	}
	return cp
}

func blockMeans(values []float64, factor int, blocks int) []float64 {
	out := make([]float64, blocks)
	for b := 0; b < blocks; b++ {
		sum := 0.0
		for i := 0; i < factor; i++ {
			sum += values[b*factor+i]
		}
		out[b] = sum / float64(factor)
	}
	return out
}

// expandSolution replays each block's powers uniformly over its fine
// intervals. Fine intervals past the last full block idle.
func expandSolution(fine *domain.OptimizationProblem, cp *domain.OptimizationProblem, coarse *domain.Solution) *domain.Solution {
	if cp.Grid.N == fine.Grid.N {
		return coarse
	}
	factor := int(cp.Grid.Interval / fine.Grid.Interval)
	n := fine.Grid.N
	sol := &domain.Solution{
		GridImport:       make([]float64, n),
		GridExport:       make([]float64, n),
		BatteryCharge:    make([]float64, n),
		BatteryDischarge: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		b := i / factor
		if b >= cp.Grid.N {
			// tail beyond the last block: battery idles and the grid
			// covers net load
			net := fine.Load[i] - fine.Solar[i]
			if net > 0 {
				sol.GridImport[i] = net
			} else {
				sol.GridExport[i] = -net
			}
			continue
		}
		sol.BatteryCharge[i] = coarse.BatteryCharge[b]
		sol.BatteryDischarge[i] = coarse.BatteryDischarge[b]
		// recompute grid flows against fine net load to keep balance
		net := fine.Load[i] - fine.Solar[i] + sol.BatteryCharge[i] - sol.BatteryDischarge[i]
		if net > 0 {
			sol.GridImport[i] = net
		} else {
			sol.GridExport[i] = -net
		}
	}
	return sol
}

// integrateSoC recomputes the state-of-charge path from the initial SoC
// and the charge/discharge sequences.
func integrateSoC(b domain.BatteryModel, dt float64, charge []float64, discharge []float64) []float64 {
	soc := make([]float64, len(charge))
	s := b.SoC
	for i := range charge {
		s += (charge[i]*b.Efficiency - discharge[i]/b.Efficiency) * dt / b.CapacityKWh
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		soc[i] = s
	}
	return soc
}

// scheduleCost evaluates import cost minus export revenue over the
// first n intervals using the fine-grid prices.
func scheduleCost(p *domain.OptimizationProblem, sol *domain.Solution, n int) float64 {
	dt := p.Grid.IntervalHours()
	cost := 0.0
	for i := 0; i < n && i < p.Grid.N; i++ {
		cost += (p.ImportPrice[i]*sol.GridImport[i] - p.ExportPrice[i]*sol.GridExport[i]) * dt
	}
	return cost
}

// baselineCost is the no-battery reference: all net load imported, all
// surplus solar exported.
func baselineCost(p *domain.OptimizationProblem, n int) float64 {
	dt := p.Grid.IntervalHours()
	cost := 0.0
	for i := 0; i < n && i < p.Grid.N; i++ {
		net := p.Load[i] - p.Solar[i]
		if net > 0 {
			cost += p.ImportPrice[i] * net * dt
		} else {
			cost -= p.ExportPrice[i] * (-net) * dt
		}
	}
	return cost
}
