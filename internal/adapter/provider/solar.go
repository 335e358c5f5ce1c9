package provider

import (
	"context"
	"math"
	"time"

	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"

	"github.com/sixdouglas/suncalc"
)

// ClearSkySolarProvider estimates generation from the sun's altitude at
// the configured site. This is a coarse clear-sky model, used when no
// external solar forecast is wired in; the clearness factor derates for
// average local conditions.
type ClearSkySolarProvider struct {
	lat       float64
	lon       float64
	peakW     float64
	clearness float64
}

var _ port.SolarForecastProvider = (*ClearSkySolarProvider)(nil)

func NewClearSkySolarProvider(cfg config.SolarConfig) *ClearSkySolarProvider {
	clearness := cfg.Clearness
	if clearness <= 0 || clearness > 1 {
		clearness = 0.7
	}
	return &ClearSkySolarProvider{
		lat:       cfg.Latitude,
		lon:       cfg.Longitude,
		peakW:     cfg.PeakPowerW,
		clearness: clearness,
	}
}

func (p *ClearSkySolarProvider) SolarForecast(ctx context.Context, from time.Time, to time.Time) ([]domain.ForecastPoint, error) {
	if p.peakW <= 0 {
		return nil, nil
	}
	var points []domain.ForecastPoint
	for t := from; t.Before(to); t = t.Add(15 * time.Minute) {
		points = append(points, domain.ForecastPoint{
			Time:  t.Unix(),
			Value: p.powerAtKW(t),
		})
	}
	return points, nil
}

func (p *ClearSkySolarProvider) powerAtKW(t time.Time) float64 {
	pos := suncalc.GetPosition(t, p.lat, p.lon)
	factor := math.Sin(pos.Altitude)
	if factor <= 0 {
		return 0
	}
	return p.peakW / 1000.0 * factor * p.clearness
}
