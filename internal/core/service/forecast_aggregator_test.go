package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"powerplan2mqtt/internal/adapter/provider"
	"powerplan2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testAggregator(p *provider.StaticProvider) *ForecastAggregator {
	return NewForecastAggregator(p, p, p, zap.NewNop())
}

func TestAggregateAlignsAllSeries(t *testing.T) {

	assert := assert.New(t)

	grid, err := domain.NewTimeGrid(testGridStart(), 30*time.Minute, 2*time.Hour)
	require.NoError(t, err, "grid build")

	static := &provider.StaticProvider{
		Interval:    30 * time.Minute,
		ImportPrice: []float64{0.10, 0.20, 0.30, 0.40},
		ExportPrice: []float64{0.05, 0.05, 0.05, 0.05},
		Solar:       []float64{0, 1, 2, 1},
		Load:        []float64{2, 2, 3, 3},
	}
	set, err := testAggregator(static).Aggregate(context.Background(), grid)
	require.NoError(t, err, "aggregate")

	assert.Equal(grid.N, len(set.ImportPrice.Values), "import price length")
	assert.Equal(grid.N, len(set.ExportPrice.Values), "export price length")
	assert.Equal(grid.N, len(set.Solar.Values), "solar length")
	assert.Equal(grid.N, len(set.Load.Values), "load length")
	assert.Equal([]float64{0.10, 0.20, 0.30, 0.40}, set.ImportPrice.Values, "import prices on grid")
	assert.Equal(domain.ConfidenceForecast, set.Confidence(), "full coverage confidence")
}

func TestAggregateIsIdempotent(t *testing.T) {

	grid, err := domain.NewTimeGrid(testGridStart(), 15*time.Minute, 3*time.Hour)
	require.NoError(t, err, "grid build")

	static := &provider.StaticProvider{
		Interval:    time.Hour,
		ImportPrice: []float64{0.10, 0.25, 0.40},
		ExportPrice: []float64{0.05, 0.07, 0.09},
		Solar:       []float64{0, 1.5, 3},
		Load:        []float64{2, 2.5, 3},
	}
	agg := testAggregator(static)

	first, err := agg.Aggregate(context.Background(), grid)
	require.NoError(t, err, "first aggregate")
	second, err := agg.Aggregate(context.Background(), grid)
	require.NoError(t, err, "second aggregate")

	assert.Equal(t, first, second, "same inputs resample to the same set")
}

func TestAggregateMissingImportPriceFails(t *testing.T) {

	assert := assert.New(t)

	grid, err := domain.NewTimeGrid(testGridStart(), 30*time.Minute, time.Hour)
	require.NoError(t, err, "grid build")

	static := &provider.StaticProvider{Interval: 30 * time.Minute}
	set, aerr := testAggregator(static).Aggregate(context.Background(), grid)
	assert.Nil(set, "no set")
	assert.True(errors.Is(aerr, domain.ErrForecastUnavailable), "forecast unavailable, got %v", aerr)

	static.Err = fmt.Errorf("upstream down")
	_, aerr = testAggregator(static).Aggregate(context.Background(), grid)
	assert.True(errors.Is(aerr, domain.ErrForecastUnavailable), "provider error wrapped, got %v", aerr)
}

func TestAggregateMissingSolarAndLoadDegrade(t *testing.T) {

	assert := assert.New(t)

	grid, err := domain.NewTimeGrid(testGridStart(), 30*time.Minute, time.Hour)
	require.NoError(t, err, "grid build")

	static := &provider.StaticProvider{
		Interval:    30 * time.Minute,
		ImportPrice: []float64{0.10, 0.20},
		ExportPrice: []float64{0.05, 0.05},
	}
	set, aerr := testAggregator(static).Aggregate(context.Background(), grid)
	assert.Nil(aerr, "aggregate")

	for i := 0; i < grid.N; i++ {
		assert.Equal(0.0, set.Solar.Values[i], "solar defaults to zero at %d", i)
		assert.Equal(0.0, set.Load.Values[i], "load defaults to zero at %d", i)
		assert.Equal(domain.ConfidenceEstimated, set.Solar.Quality[i], "solar quality at %d", i)
	}
	assert.Equal(domain.ConfidenceEstimated, set.Confidence(), "degraded overall confidence")
}

func TestResampleHoldsCoarseNativePoints(t *testing.T) {

	assert := assert.New(t)

	grid, err := domain.NewTimeGrid(testGridStart(), 15*time.Minute, 4*time.Hour)
	require.NoError(t, err, "grid build")

	// two hourly points; the grid runs two hours past the last one
	points := []domain.ForecastPoint{
		{Time: grid.Start.Unix(), Value: 0.10},
		{Time: grid.Start.Add(time.Hour).Unix(), Value: 0.40},
	}
	s := resample(grid, domain.SignalImportPrice, points)

	assert.Equal(0.10, s.Values[0], "first hour holds first point")
	assert.Equal(0.10, s.Values[3], "first hour holds first point")
	assert.Equal(0.40, s.Values[4], "second hour holds second point")
	assert.Equal(0.40, s.Values[grid.N-1], "tail holds last point")

	assert.Equal(domain.ConfidenceForecast, s.Quality[0], "covered index")
	assert.Equal(domain.ConfidenceForecast, s.Quality[7], "still within native coverage")
	assert.Equal(domain.ConfidenceExtended, s.Quality[grid.N-1], "extrapolated tail flagged")
}

func TestResampleBeforeFirstPointIsEstimated(t *testing.T) {

	assert := assert.New(t)

	grid, err := domain.NewTimeGrid(testGridStart(), 15*time.Minute, 2*time.Hour)
	require.NoError(t, err, "grid build")

	points := []domain.ForecastPoint{
		{Time: grid.Start.Add(time.Hour).Unix(), Value: 0.25},
	}
	s := resample(grid, domain.SignalImportPrice, points)

	assert.Equal(0.25, s.Values[0], "backfilled from first point")
	assert.Equal(domain.ConfidenceEstimated, s.Quality[0], "backfill flagged as estimated")
	assert.Equal(domain.ConfidenceForecast, s.Quality[4], "covered once the point starts")
}
