package domain

// SignalKind identifies one of the forecast signals the planner consumes.
type SignalKind int

const (
	SignalImportPrice SignalKind = iota
	SignalExportPrice
	SignalSolarPower
	SignalLoadPower
)

func (k SignalKind) String() string {
	switch k {
	case SignalImportPrice:
		return "import_price"
	case SignalExportPrice:
		return "export_price"
	case SignalSolarPower:
		return "solar_power"
	case SignalLoadPower:
		return "load_power"
	default:
		return "unknown"
	}
}

// Confidence qualifies how trustworthy a forecast value is.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceEstimated
	ConfidenceExtended
	ConfidenceForecast
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceForecast:
		return "forecast"
	case ConfidenceExtended:
		return "extended"
	case ConfidenceEstimated:
		return "estimated"
	default:
		return "none"
	}
}

// ForecastPoint is one native data point from a provider, before
// resampling onto the planning grid.
type ForecastPoint struct {
	Time  int64 // unix seconds
	Value float64
}

// ForecastSeries is one signal aligned to a TimeGrid. Values and
// Quality always have length Grid.N.
type ForecastSeries struct {
	Kind    SignalKind
	Grid    TimeGrid
	Values  []float64
	Quality []Confidence
}

// MinConfidence returns the weakest confidence over the series.
func (s ForecastSeries) MinConfidence() Confidence {
	if len(s.Quality) == 0 {
		return ConfidenceNone
	}
	min := s.Quality[0]
	for _, q := range s.Quality[1:] {
		if q < min {
			min = q
		}
	}
	return min
}

// ForecastSet bundles the four aligned series one planning pass works on.
type ForecastSet struct {
	Grid        TimeGrid
	ImportPrice ForecastSeries
	ExportPrice ForecastSeries
	Solar       ForecastSeries
	Load        ForecastSeries
}

// Confidence returns the weakest per-series confidence of the set.
func (f ForecastSet) Confidence() Confidence {
	min := f.ImportPrice.MinConfidence()
	for _, s := range []ForecastSeries{f.ExportPrice, f.Solar, f.Load} {
		if c := s.MinConfidence(); c < min {
			min = c
		}
	}
	return min
}
