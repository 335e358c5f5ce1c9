package port

import (
	"context"
	"time"

	"powerplan2mqtt/internal/core/domain"
)

// PriceForecastProvider returns timestamped import/export price pairs
// covering at least [from, to), in currency per kWh.
type PriceForecastProvider interface {
	Prices(ctx context.Context, from time.Time, to time.Time) (imports []domain.ForecastPoint, exports []domain.ForecastPoint, err error)
}

// SolarForecastProvider returns expected generation power in kW.
type SolarForecastProvider interface {
	SolarForecast(ctx context.Context, from time.Time, to time.Time) ([]domain.ForecastPoint, error)
}

// LoadEstimator returns expected household consumption power in kW.
type LoadEstimator interface {
	LoadForecast(ctx context.Context, from time.Time, to time.Time) ([]domain.ForecastPoint, error)
}
