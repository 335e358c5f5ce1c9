package provider

import (
	"context"
	"time"

	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"
)

// defaultHourlyFactor is a typical residential day shape: low at night,
// a morning bump, an evening peak.
var defaultHourlyFactor = []float64{
	0.6, 0.5, 0.5, 0.5, 0.5, 0.6,
	0.8, 1.1, 1.2, 1.0, 0.9, 0.9,
	1.0, 0.9, 0.9, 0.9, 1.0, 1.2,
	1.6, 1.8, 1.7, 1.4, 1.0, 0.7,
}

// ProfileLoadEstimator estimates household consumption from a base
// power scaled by an hour-of-day factor curve.
type ProfileLoadEstimator struct {
	baseW  float64
	factor []float64
}

var _ port.LoadEstimator = (*ProfileLoadEstimator)(nil)

func NewProfileLoadEstimator(cfg config.LoadConfig) *ProfileLoadEstimator {
	factor := cfg.HourlyFactor
	if len(factor) != 24 {
		factor = defaultHourlyFactor
	}
	return &ProfileLoadEstimator{
		baseW:  cfg.BasePowerW,
		factor: factor,
	}
}

func (p *ProfileLoadEstimator) LoadForecast(ctx context.Context, from time.Time, to time.Time) ([]domain.ForecastPoint, error) {
	if p.baseW <= 0 {
		return nil, nil
	}
	var points []domain.ForecastPoint
	for t := from; t.Before(to); t = t.Add(time.Hour) {
		points = append(points, domain.ForecastPoint{
			Time:  t.Unix(),
			Value: p.baseW / 1000.0 * p.factor[t.Hour()],
		})
	}
	return points, nil
}
