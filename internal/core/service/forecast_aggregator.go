package service

import (
	"context"
	"time"

	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"

	"go.uber.org/zap"
)

// ForecastAggregator normalizes heterogeneous forecast sources onto one
// planning grid. All produced series have length grid.N and aligned
// indices. Identical inputs always produce identical output.
type ForecastAggregator struct {
	prices port.PriceForecastProvider
	solar  port.SolarForecastProvider
	load   port.LoadEstimator
	logger *zap.Logger
}

func NewForecastAggregator(prices port.PriceForecastProvider, solar port.SolarForecastProvider,
	load port.LoadEstimator, logger *zap.Logger) *ForecastAggregator {
	return &ForecastAggregator{
		prices: prices,
		solar:  solar,
		load:   load,
		logger: logger.With(zap.String("service", "forecast_aggregator")),
	}
}

// Aggregate builds the aligned forecast set for one pass. Import price
// is the only required signal. Solar and load degrade to zero with
// estimated confidence instead of failing the pass.
func (a *ForecastAggregator) Aggregate(ctx context.Context, grid domain.TimeGrid) (*domain.ForecastSet, error) {
	from, to := grid.Start, grid.End()

	imports, exports, err := a.prices.Prices(ctx, from, to)
	if err != nil {
		return nil, domain.ForecastUnavailableError(domain.SignalImportPrice, err)
	}
	if len(imports) == 0 {
		return nil, domain.ForecastUnavailableError(domain.SignalImportPrice, nil)
	}

	set := &domain.ForecastSet{Grid: grid}
	set.ImportPrice = resample(grid, domain.SignalImportPrice, imports)
	set.ExportPrice = resampleOrDefault(grid, domain.SignalExportPrice, exports)

	solarPoints, err := a.solar.SolarForecast(ctx, from, to)
	if err != nil {
		a.logger.Warn("solar forecast unavailable, defaulting to zero", zap.Error(err))
		solarPoints = nil
	}
	set.Solar = resampleOrDefault(grid, domain.SignalSolarPower, solarPoints)

	loadPoints, err := a.load.LoadForecast(ctx, from, to)
	if err != nil {
		a.logger.Warn("load estimate unavailable, defaulting to zero", zap.Error(err))
		loadPoints = nil
	}
	set.Load = resampleOrDefault(grid, domain.SignalLoadPower, loadPoints)

	return set, nil
}

// resample projects native provider points onto the grid with
// sample-and-hold semantics. Indices before the first point reuse the
// first value with estimated confidence. Indices past the last point
// hold the last value with extended confidence.
func resample(grid domain.TimeGrid, kind domain.SignalKind, points []domain.ForecastPoint) domain.ForecastSeries {
	s := domain.ForecastSeries{
		Kind:    kind,
		Grid:    grid,
		Values:  make([]float64, grid.N),
		Quality: make([]domain.Confidence, grid.N),
	}
	j := 0
	for i := 0; i < grid.N; i++ {
		ts := grid.TimeAt(i).Unix()
		for j+1 < len(points) && points[j+1].Time <= ts {
			j++
		}
		switch {
		case points[j].Time > ts:
			// before first native point
			s.Values[i] = points[j].Value
			s.Quality[i] = domain.ConfidenceEstimated
		case j == len(points)-1 && pastCoverage(points[j], ts, grid.Interval):
			s.Values[i] = points[j].Value
			s.Quality[i] = domain.ConfidenceExtended
		default:
			s.Values[i] = points[j].Value
			s.Quality[i] = domain.ConfidenceForecast
		}
	}
	return s
}

// pastCoverage reports whether a grid timestamp is beyond what the last
// native point can reasonably cover. Native resolutions coarser than
// the grid are covered for one hour past the last point.
func pastCoverage(last domain.ForecastPoint, ts int64, interval time.Duration) bool {
	covered := int64(time.Hour / time.Second)
	if w := int64(interval / time.Second); w > covered {
		covered = w
	}
	return ts > last.Time+covered
}

func resampleOrDefault(grid domain.TimeGrid, kind domain.SignalKind, points []domain.ForecastPoint) domain.ForecastSeries {
	if len(points) > 0 {
		return resample(grid, kind, points)
	}
	s := domain.ForecastSeries{
		Kind:    kind,
		Grid:    grid,
		Values:  make([]float64, grid.N),
		Quality: make([]domain.Confidence, grid.N),
	}
	for i := range s.Quality {
		s.Quality[i] = domain.ConfidenceEstimated
	}
	return s
}
