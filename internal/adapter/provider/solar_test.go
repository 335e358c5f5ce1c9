package provider

import (
	"context"
	"testing"
	"time"

	"powerplan2mqtt/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSolarConfig() config.SolarConfig {
	// Madrid
	return config.SolarConfig{
		Latitude:   40.4,
		Longitude:  -3.7,
		PeakPowerW: 5000,
		Clearness:  0.7,
	}
}

func TestSolarZeroAtNight(t *testing.T) {

	assert := assert.New(t)

	p := NewClearSkySolarProvider(testSolarConfig())

	night := time.Date(2026, 6, 21, 1, 0, 0, 0, time.UTC)
	points, err := p.SolarForecast(context.Background(), night, night.Add(time.Hour))
	require.NoError(t, err, "forecast")
	for _, pt := range points {
		assert.Equal(0.0, pt.Value, "no generation below the horizon")
	}
}

func TestSolarPeaksAroundNoon(t *testing.T) {

	assert := assert.New(t)

	p := NewClearSkySolarProvider(testSolarConfig())

	day := time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC)
	points, err := p.SolarForecast(context.Background(), day, day.Add(24*time.Hour))
	require.NoError(t, err, "forecast")

	noon := p.powerAtKW(day.Add(12 * time.Hour))
	assert.Greater(noon, 0.0, "midsummer noon generates")
	assert.LessOrEqual(noon, 5.0*0.7, "never above derated peak")

	var maxV float64
	for _, pt := range points {
		if pt.Value > maxV {
			maxV = pt.Value
		}
	}
	assert.Greater(maxV, p.powerAtKW(day.Add(8*time.Hour)), "peak above morning output")
}

func TestSolarDisabledWithoutPeakPower(t *testing.T) {

	assert := assert.New(t)

	p := NewClearSkySolarProvider(config.SolarConfig{Latitude: 40.4, Longitude: -3.7})
	points, err := p.SolarForecast(context.Background(), time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err, "no error")
	assert.Empty(points, "no forecast without panels")
}
