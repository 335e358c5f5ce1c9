package domain

import (
	"fmt"
	"time"
)

// TimeGrid is an ordered sequence of equal-width planning intervals.
// The start is always snapped back to the previous interval boundary so
// two passes started within the same interval produce the same grid.
type TimeGrid struct {
	Start    time.Time
	Interval time.Duration
	N        int
}

func NewTimeGrid(now time.Time, interval time.Duration, horizon time.Duration) (TimeGrid, error) {
	if interval <= 0 {
		return TimeGrid{}, fmt.Errorf("grid interval must be positive, got %s", interval)
	}
	if horizon < interval {
		return TimeGrid{}, fmt.Errorf("horizon %s shorter than interval %s", horizon, interval)
	}
	n := int(horizon / interval)
	return TimeGrid{
		Start:    now.Truncate(interval),
		Interval: interval,
		N:        n,
	}, nil
}

// IntervalHours returns the interval width in hours, the unit price and
// energy math is done in.
func (g TimeGrid) IntervalHours() float64 {
	return g.Interval.Hours()
}

func (g TimeGrid) TimeAt(i int) time.Time {
	return g.Start.Add(time.Duration(i) * g.Interval)
}

func (g TimeGrid) End() time.Time {
	return g.TimeAt(g.N)
}

// IndexOf returns the interval containing t, or -1 when t is outside the
// grid.
func (g TimeGrid) IndexOf(t time.Time) int {
	if t.Before(g.Start) {
		return -1
	}
	i := int(t.Sub(g.Start) / g.Interval)
	if i >= g.N {
		return -1
	}
	return i
}

// Coarsen groups intervals into blocks of the given factor, returning a
// grid with wider intervals over the same span. A trailing partial block
// is dropped.
func (g TimeGrid) Coarsen(factor int) TimeGrid {
	if factor <= 1 {
		return g
	}
	return TimeGrid{
		Start:    g.Start,
		Interval: g.Interval * time.Duration(factor),
		N:        g.N / factor,
	}
}
