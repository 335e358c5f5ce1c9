package port

import (
	"powerplan2mqtt/internal/core/domain"
)

// ScheduleSolver turns a formulated problem into a per-interval
// solution. Implementations report infeasibility and solver failures
// through the domain error taxonomy.
type ScheduleSolver interface {
	Solve(problem *domain.OptimizationProblem) (*domain.Solution, error)
}

// PlanReader is the read side of the published plan state, shared with
// the HTTP and EV paths. Readers always see a complete plan or none.
type PlanReader interface {
	ActivePlan() *domain.SchedulePlan
	LastTelemetry() *domain.TelemetrySnapshot
	LastEVBudget() *domain.EVBudget
}
