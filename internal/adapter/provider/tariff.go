package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"
)

// TariffPriceProvider serves the configured time-of-use price curve.
// It is the built-in fallback when no external price feed is wired in;
// periods repeat daily and gaps fall back to the base prices.
type TariffPriceProvider struct {
	base    config.TariffConfig
	periods []tariffPeriod
}

type tariffPeriod struct {
	startMin    int
	endMin      int
	importPrice float64
	exportPrice float64
}

var _ port.PriceForecastProvider = (*TariffPriceProvider)(nil)

func NewTariffPriceProvider(cfg config.TariffConfig) (*TariffPriceProvider, error) {
	p := &TariffPriceProvider{base: cfg}
	for _, period := range cfg.Periods {
		start, err := parseClock(period.Start)
		if err != nil {
			return nil, fmt.Errorf("tariff period start %q: %w", period.Start, err)
		}
		end, err := parseClock(period.End)
		if err != nil {
			return nil, fmt.Errorf("tariff period end %q: %w", period.End, err)
		}
		p.periods = append(p.periods, tariffPeriod{
			startMin:    start,
			endMin:      end,
			importPrice: period.ImportPrice,
			exportPrice: period.ExportPrice,
		})
	}
	return p, nil
}

func (p *TariffPriceProvider) Prices(ctx context.Context, from time.Time, to time.Time) ([]domain.ForecastPoint, []domain.ForecastPoint, error) {
	var imports, exports []domain.ForecastPoint
	for t := from.Truncate(time.Minute); t.Before(to); t = t.Add(15 * time.Minute) {
		imp, exp := p.pricesAt(t)
		imports = append(imports, domain.ForecastPoint{Time: t.Unix(), Value: imp})
		exports = append(exports, domain.ForecastPoint{Time: t.Unix(), Value: exp})
	}
	return imports, exports, nil
}

func (p *TariffPriceProvider) pricesAt(t time.Time) (float64, float64) {
	minute := t.Hour()*60 + t.Minute()
	for _, period := range p.periods {
		if inClockRange(minute, period.startMin, period.endMin) {
			return period.importPrice, period.exportPrice
		}
	}
	return p.base.BaseImportPrice, p.base.BaseExportPrice
}

// inClockRange handles periods that wrap past midnight.
func inClockRange(minute, start, end int) bool {
	if start <= end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute")
	}
	return h*60 + m, nil
}
