package provider

import (
	"context"
	"time"

	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"
)

// StaticProvider serves fixed per-interval series, used in tests and
// as a stand-in for external feeds. Values repeat in order from the
// requested start; an empty slice models a provider with no data.
type StaticProvider struct {
	Interval    time.Duration
	ImportPrice []float64
	ExportPrice []float64
	Solar       []float64
	Load        []float64
	Err         error
}

var _ port.PriceForecastProvider = (*StaticProvider)(nil)
var _ port.SolarForecastProvider = (*StaticProvider)(nil)
var _ port.LoadEstimator = (*StaticProvider)(nil)

func (p *StaticProvider) Prices(ctx context.Context, from time.Time, to time.Time) ([]domain.ForecastPoint, []domain.ForecastPoint, error) {
	if p.Err != nil {
		return nil, nil, p.Err
	}
	return p.series(from, p.ImportPrice), p.series(from, p.ExportPrice), nil
}

func (p *StaticProvider) SolarForecast(ctx context.Context, from time.Time, to time.Time) ([]domain.ForecastPoint, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.series(from, p.Solar), nil
}

func (p *StaticProvider) LoadForecast(ctx context.Context, from time.Time, to time.Time) ([]domain.ForecastPoint, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.series(from, p.Load), nil
}

func (p *StaticProvider) series(from time.Time, values []float64) []domain.ForecastPoint {
	interval := p.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	points := make([]domain.ForecastPoint, 0, len(values))
	for i, v := range values {
		points = append(points, domain.ForecastPoint{
			Time:  from.Add(time.Duration(i) * interval).Unix(),
			Value: v,
		})
	}
	return points
}
