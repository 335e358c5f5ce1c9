package domain

// Objective selects what the planner optimizes for.
type Objective int

const (
	// ObjectiveCost minimizes import cost minus export revenue.
	ObjectiveCost Objective = iota
	// ObjectiveSelfConsumption minimizes grid interaction magnitude.
	ObjectiveSelfConsumption
)

func ParseObjective(s string) Objective {
	if s == "self_consumption" {
		return ObjectiveSelfConsumption
	}
	return ObjectiveCost
}

func (o Objective) String() string {
	if o == ObjectiveSelfConsumption {
		return "self_consumption"
	}
	return "cost"
}

// OptimizationProblem is one formulated planning problem. Built fresh
// each pass and never mutated after the solve starts.
type OptimizationProblem struct {
	Grid      TimeGrid
	Battery   BatteryModel
	Objective Objective

	// Per-interval inputs, length Grid.N. Prices in currency/kWh,
	// powers in kW.
	ImportPrice []float64
	ExportPrice []float64
	Solar       []float64
	Load        []float64

	// Site limits in kW. MaxExportKW <= 0 means no export limit beyond
	// the import capacity.
	MaxImportKW float64
	MaxExportKW float64
}

// Solution is the raw per-interval solver output, before action
// classification. All slices have length Grid.N, powers in kW.
type Solution struct {
	GridImport       []float64
	GridExport       []float64
	BatteryCharge    []float64
	BatteryDischarge []float64
	SoC              []float64
	Cost             float64
	Feasible         bool
	Relaxed          bool
}

// NetBatteryKW returns the signed battery power for interval i,
// positive when charging.
func (s Solution) NetBatteryKW(i int) float64 {
	return s.BatteryCharge[i] - s.BatteryDischarge[i]
}
