package provider

import (
	"context"
	"testing"
	"time"

	"powerplan2mqtt/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTariffConfig() config.TariffConfig {
	return config.TariffConfig{
		BaseImportPrice: 0.30,
		BaseExportPrice: 0.08,
		Periods: []config.TariffPeriod{
			{Start: "02:00", End: "06:00", ImportPrice: 0.12, ExportPrice: 0.05},
			{Start: "18:00", End: "21:00", ImportPrice: 0.45, ExportPrice: 0.15},
		},
	}
}

func TestTariffPeriodLookup(t *testing.T) {

	assert := assert.New(t)

	p, err := NewTariffPriceProvider(testTariffConfig())
	require.NoError(t, err, "provider build")

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	imp, exp := p.pricesAt(day.Add(3 * time.Hour))
	assert.Equal(0.12, imp, "night period import")
	assert.Equal(0.05, exp, "night period export")

	imp, exp = p.pricesAt(day.Add(19 * time.Hour))
	assert.Equal(0.45, imp, "evening peak import")
	assert.Equal(0.15, exp, "evening peak export")

	imp, exp = p.pricesAt(day.Add(12 * time.Hour))
	assert.Equal(0.30, imp, "gap falls back to base import")
	assert.Equal(0.08, exp, "gap falls back to base export")

	// period bounds are [start, end)
	imp, _ = p.pricesAt(day.Add(6 * time.Hour))
	assert.Equal(0.30, imp, "period end is exclusive")
	imp, _ = p.pricesAt(day.Add(2 * time.Hour))
	assert.Equal(0.12, imp, "period start is inclusive")
}

func TestTariffPeriodWrapsMidnight(t *testing.T) {

	assert := assert.New(t)

	cfg := config.TariffConfig{
		BaseImportPrice: 0.30,
		BaseExportPrice: 0.08,
		Periods: []config.TariffPeriod{
			{Start: "22:00", End: "04:00", ImportPrice: 0.10, ExportPrice: 0.04},
		},
	}
	p, err := NewTariffPriceProvider(cfg)
	require.NoError(t, err, "provider build")

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	imp, _ := p.pricesAt(day.Add(23 * time.Hour))
	assert.Equal(0.10, imp, "before midnight")
	imp, _ = p.pricesAt(day.Add(1 * time.Hour))
	assert.Equal(0.10, imp, "after midnight")
	imp, _ = p.pricesAt(day.Add(12 * time.Hour))
	assert.Equal(0.30, imp, "outside the wrapped period")
}

func TestTariffPricesCoverTheWindow(t *testing.T) {

	assert := assert.New(t)

	p, err := NewTariffPriceProvider(testTariffConfig())
	require.NoError(t, err, "provider build")

	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	imports, exports, err := p.Prices(context.Background(), from, from.Add(2*time.Hour))
	require.NoError(t, err, "prices")
	assert.Equal(8, len(imports), "one point per 15 minutes")
	assert.Equal(len(imports), len(exports), "aligned series")
	assert.Equal(from.Unix(), imports[0].Time, "first point at window start")
	assert.Equal(0.30, imports[0].Value, "base price before the night period")
}

func TestTariffRejectsBadClock(t *testing.T) {

	assert := assert.New(t)

	cfg := config.TariffConfig{
		Periods: []config.TariffPeriod{{Start: "25:00", End: "06:00"}},
	}
	_, err := NewTariffPriceProvider(cfg)
	assert.NotNil(err, "invalid hour rejected")

	cfg.Periods = []config.TariffPeriod{{Start: "0200", End: "06:00"}}
	_, err = NewTariffPriceProvider(cfg)
	assert.NotNil(err, "missing separator rejected")
}
