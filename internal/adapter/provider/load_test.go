package provider

import (
	"context"
	"testing"
	"time"

	"powerplan2mqtt/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfileFollowsHourFactor(t *testing.T) {

	assert := assert.New(t)

	p := NewProfileLoadEstimator(config.LoadConfig{BasePowerW: 1000})

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	points, err := p.LoadForecast(context.Background(), from, from.Add(24*time.Hour))
	require.NoError(t, err, "forecast")
	assert.Equal(24, len(points), "one point per hour")

	assert.InDelta(0.6, points[0].Value, 1e-9, "night factor at midnight")
	assert.InDelta(1.8, points[19].Value, 1e-9, "evening peak factor")
	for _, pt := range points {
		assert.Greater(pt.Value, 0.0, "load is always positive")
	}
}

func TestLoadProfileCustomFactors(t *testing.T) {

	assert := assert.New(t)

	factor := make([]float64, 24)
	for i := range factor {
		factor[i] = 2.0
	}
	p := NewProfileLoadEstimator(config.LoadConfig{BasePowerW: 500, HourlyFactor: factor})

	from := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	points, err := p.LoadForecast(context.Background(), from, from.Add(time.Hour))
	require.NoError(t, err, "forecast")
	assert.InDelta(1.0, points[0].Value, 1e-9, "base power times custom factor, in kW")
}

func TestLoadProfileDisabledWithoutBasePower(t *testing.T) {

	assert := assert.New(t)

	p := NewProfileLoadEstimator(config.LoadConfig{})
	points, err := p.LoadForecast(context.Background(), time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err, "no error")
	assert.Empty(points, "no estimate without a base power")
}
