package domain

import "time"

// Action is the discrete operating mode dispatched to the storage
// device for one window.
type Action int

const (
	ActionSelfConsumption Action = iota
	ActionCharge
	ActionExport
	ActionIdle
)

func (a Action) String() string {
	switch a {
	case ActionCharge:
		return "charge"
	case ActionExport:
		return "export"
	case ActionIdle:
		return "idle"
	default:
		return "self_consumption"
	}
}

// Provenance records which stage of the pipeline produced a plan.
type Provenance int

const (
	ProvenanceNone Provenance = iota
	ProvenanceSolver
	ProvenanceSolverRelaxed
	ProvenanceGreedy
)

func (p Provenance) String() string {
	switch p {
	case ProvenanceSolver:
		return "solver"
	case ProvenanceSolverRelaxed:
		return "solver_relaxed"
	case ProvenanceGreedy:
		return "greedy"
	default:
		return "none"
	}
}

// Degraded reports whether the plan came from a fallback path.
func (p Provenance) Degraded() bool {
	return p == ProvenanceSolverRelaxed || p == ProvenanceGreedy
}

// IntervalDecision is the planned state of one grid interval.
// BatteryKW is signed, positive when charging.
type IntervalDecision struct {
	Time           time.Time
	BatteryKW      float64
	GridImportKW   float64
	GridExportKW   float64
	SoC            float64
	ImportPriceKWh float64
	Action         Action
}

// ActionWindow is a run of adjacent intervals with the same Action,
// the unit the execution interface works in.
type ActionWindow struct {
	Start      time.Time
	End        time.Time
	Action     Action
	AvgPowerKW float64
}

// CostSummary compares the planned schedule against a no-battery
// baseline over the first 24 hours of the horizon.
type CostSummary struct {
	PredictedCost float64
	BaselineCost  float64
	Savings       float64
}

// SchedulePlan is the output of one planning pass. Plans are immutable
// once published and superseded atomically by the next pass.
type SchedulePlan struct {
	Seq        uint64
	CreatedAt  time.Time
	Grid       TimeGrid
	Intervals  []IntervalDecision
	Windows    []ActionWindow
	Cost       CostSummary
	Provenance Provenance
	Confidence Confidence
}

// WindowAt returns the window covering t and the one after it.
func (p *SchedulePlan) WindowAt(t time.Time) (current *ActionWindow, next *ActionWindow) {
	for i := range p.Windows {
		w := &p.Windows[i]
		if !t.Before(w.Start) && t.Before(w.End) {
			current = w
			if i+1 < len(p.Windows) {
				next = &p.Windows[i+1]
			}
			return
		}
		if t.Before(w.Start) {
			next = w
			return
		}
	}
	return
}

// EVBudget is the instantaneous power share available to the EV
// charger, derived from live telemetry and the battery plan.
type EVBudget struct {
	Time             time.Time
	AvailableW       float64
	RequestedW       float64
	RequestedCurrent float64
	Charging         bool
	Reason           string
}
