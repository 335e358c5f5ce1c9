package service

import (
	"context"
	"errors"
	"time"

	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"

	"go.uber.org/zap"
)

// relaxedReserve replaces the configured backup reserve when the first
// solve reports infeasible, before giving up on the solver entirely.
const relaxedReserve = 0.05

// PassConfig is the per-pass static configuration of the pipeline.
type PassConfig struct {
	Interval        time.Duration
	Horizon         time.Duration
	Objective       domain.Objective
	Bands           ActionBands
	MaxImportKW     float64
	MaxExportKW     float64
	BatteryDefaults domain.BatteryModel
	TelemetryMaxAge time.Duration
}

// PlanningPass runs the full pipeline for one trigger: grid, aggregate,
// formulate, solve with fallbacks, classify. Failure of a stage
// degrades to the next safer one; only a missing required forecast
// fails the pass.
type PlanningPass struct {
	cfg        PassConfig
	aggregator *ForecastAggregator
	solver     port.ScheduleSolver
	fallback   *GreedyPlanner
	logger     *zap.Logger
}

func NewPlanningPass(cfg PassConfig, aggregator *ForecastAggregator, solver port.ScheduleSolver,
	fallback *GreedyPlanner, logger *zap.Logger) *PlanningPass {
	return &PlanningPass{
		cfg:        cfg,
		aggregator: aggregator,
		solver:     solver,
		fallback:   fallback,
		logger:     logger.With(zap.String("service", "planning_pass")),
	}
}

// Run executes one pass. telemetry may be nil before the first device
// read; the pass then plans on the configured battery defaults with
// estimated confidence.
func (p *PlanningPass) Run(ctx context.Context, now time.Time, seq uint64,
	telemetry *domain.TelemetrySnapshot) (*domain.SchedulePlan, error) {

	grid, err := domain.NewTimeGrid(now, p.cfg.Interval, p.cfg.Horizon)
	if err != nil {
		return nil, err
	}

	set, err := p.aggregator.Aggregate(ctx, grid)
	if err != nil {
		return nil, err
	}
	confidence := set.Confidence()

	battery := p.cfg.BatteryDefaults
	if telemetry != nil {
		battery = telemetry.Battery(p.cfg.BatteryDefaults)
		if age := telemetry.Age(now); age > p.cfg.TelemetryMaxAge {
			p.logger.Warn("telemetry stale, planning on last known state",
				zap.Error(domain.TelemetryStaleError(age, p.cfg.TelemetryMaxAge)))
			confidence = minConfidence(confidence, domain.ConfidenceEstimated)
		}
	} else {
		confidence = minConfidence(confidence, domain.ConfidenceEstimated)
	}

	sol, provenance := p.solve(set, battery)
	if provenance != domain.ProvenanceSolver {
		confidence = minConfidence(confidence, domain.ConfidenceEstimated)
	}

	problem, perr := BuildProblem(set, clampBattery(battery), p.cfg.Objective, p.cfg.MaxImportKW, p.cfg.MaxExportKW)
	if perr != nil {
		// clamped battery cannot fail validation
		return nil, perr
	}
	return BuildPlan(problem, sol, p.cfg.Bands, seq, now, confidence, provenance), nil
}

// solve tries the LP, then the LP with a relaxed reserve, then the
// greedy fallback. The greedy planner on a clamped battery model cannot
// fail.
func (p *PlanningPass) solve(set *domain.ForecastSet, battery domain.BatteryModel) (*domain.Solution, domain.Provenance) {
	problem, err := BuildProblem(set, battery, p.cfg.Objective, p.cfg.MaxImportKW, p.cfg.MaxExportKW)
	if err == nil {
		sol, serr := p.solver.Solve(problem)
		if serr == nil {
			return sol, domain.ProvenanceSolver
		}
		err = serr
		if errors.Is(serr, domain.ErrSolverInfeasible) {
			if sol, rerr := p.solveRelaxed(set, battery); rerr == nil {
				return sol, domain.ProvenanceSolverRelaxed
			}
		}
	}
	p.logger.Warn("solver failed, using greedy fallback", zap.Error(err))

	fallbackProblem, _ := BuildProblem(set, clampBattery(battery), p.cfg.Objective, p.cfg.MaxImportKW, p.cfg.MaxExportKW)
	sol, _ := p.fallback.Solve(fallbackProblem)
	return sol, domain.ProvenanceGreedy
}

func (p *PlanningPass) solveRelaxed(set *domain.ForecastSet, battery domain.BatteryModel) (*domain.Solution, error) {
	relaxed := battery
	relaxed.BackupReserve = relaxedReserve
	if relaxed.SoC < relaxed.BackupReserve {
		relaxed.SoC = relaxed.BackupReserve
	}
	p.logger.Warn("solver infeasible, retrying with relaxed reserve",
		zap.Float64("configured_reserve", battery.BackupReserve),
		zap.Float64("relaxed_reserve", relaxedReserve))

	problem, err := BuildProblem(set, relaxed, p.cfg.Objective, p.cfg.MaxImportKW, p.cfg.MaxExportKW)
	if err != nil {
		return nil, err
	}
	sol, err := p.solver.Solve(problem)
	if err != nil {
		return nil, err
	}
	sol.Relaxed = true
	return sol, nil
}

func minConfidence(a, b domain.Confidence) domain.Confidence {
	if a < b {
		return a
	}
	return b
}
