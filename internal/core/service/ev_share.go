package service

import (
	"sort"
	"time"

	"powerplan2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

// adjustStepA is the smallest current change worth pushing to the
// charger. Smaller deltas are ignored to avoid relay chatter.
const adjustStepA = 2.0

// EVShareCalculator apportions spare grid and solar capacity to the EV
// charger. It treats the battery schedule as given and only arbitrates
// the remainder; it never re-solves the plan.
type EVShareCalculator struct {
	charger       domain.EVChargerModel
	cheapFraction float64
	logger        *zap.Logger
}

func NewEVShareCalculator(charger domain.EVChargerModel, cheapFraction float64, logger *zap.Logger) *EVShareCalculator {
	if cheapFraction <= 0 || cheapFraction > 1 {
		cheapFraction = 0.3
	}
	return &EVShareCalculator{
		charger:       charger,
		cheapFraction: cheapFraction,
		logger:        logger.With(zap.String("service", "ev_share")),
	}
}

// AvailablePower computes the instantaneous budget for the charger:
// spare grid headroom plus solar surplus left after home and battery.
// EV draw already in the telemetry is added back so the budget is what
// the charger could use, not what is left besides it.
func (c *EVShareCalculator) AvailablePower(t domain.TelemetrySnapshot, evPowerW float64) float64 {
	homeDraw := t.LoadPowerW - evPowerW
	if homeDraw < 0 {
		homeDraw = 0
	}
	batteryCharge := t.BatteryPowerW
	if batteryCharge < 0 {
		batteryCharge = 0
	}

	var available float64
	if t.SolarPowerW > 0 {
		solarForBattery := batteryCharge
		if solarForBattery > t.SolarPowerW {
			solarForBattery = t.SolarPowerW
		}
		gridSideBattery := batteryCharge - solarForBattery
		gridHeadroom := c.charger.GridCapacityW - homeDraw - gridSideBattery
		if gridHeadroom < 0 {
			gridHeadroom = 0
		}
		solarSurplus := t.SolarPowerW - homeDraw - solarForBattery
		if solarSurplus < 0 {
			solarSurplus = 0
		}
		available = gridHeadroom + solarSurplus
	} else {
		available = c.charger.GridCapacityW - homeDraw - batteryCharge
	}
	if available < 0 {
		available = 0
	}
	if available > c.charger.GridCapacityW {
		available = c.charger.GridCapacityW
	}
	return available
}

// Compute derives the budget and the current to request for the active
// mode. lastApplied is the charger current currently in force, used for
// the adjustment hysteresis. plan may be nil before the first pass.
func (c *EVShareCalculator) Compute(mode domain.EVMode, t domain.TelemetrySnapshot, evPowerW float64,
	plan *domain.SchedulePlan, lastApplied float64, now time.Time) domain.EVBudget {

	budget := domain.EVBudget{Time: now}
	if mode == domain.EVModeOff {
		budget.Reason = "mode off"
		return budget
	}

	available := c.AvailablePower(t, evPowerW)
	budget.AvailableW = available

	switch mode {
	case domain.EVModeSolarOnly:
		surplus := t.SolarPowerW - (t.LoadPowerW - evPowerW)
		if surplus < available {
			available = surplus
		}
		if available < 0 {
			available = 0
		}
	case domain.EVModeSmart:
		if !c.cheapWindowNow(plan, now) {
			budget.Reason = "waiting for cheap window"
			return budget
		}
	case domain.EVModeImmediate, domain.EVModeScheduled:
		// scheduled departure pressure handled by the coordinator
	}

	if available < c.charger.MinPowerW() {
		budget.Reason = "below minimum charge power"
		return budget
	}

	amps := c.charger.CurrentFor(available)
	if amps == 0 {
		budget.Reason = "below minimum charge current"
		return budget
	}
	// hold the previous setting for small changes
	if lastApplied > 0 && absF(amps-lastApplied) < adjustStepA {
		amps = lastApplied
	}
	budget.Charging = true
	budget.RequestedCurrent = amps
	budget.RequestedW = amps * c.charger.Voltage * float64(c.charger.Phases)
	budget.Reason = "charging"
	return budget
}

// cheapWindowNow reports whether the current interval's import price is
// within the cheapest configured fraction of the plan horizon. With no
// plan the coordinator charges rather than blocking on optimizer
// failure. Planned charge windows always qualify.
func (c *EVShareCalculator) cheapWindowNow(plan *domain.SchedulePlan, now time.Time) bool {
	if plan == nil || len(plan.Intervals) == 0 {
		return true
	}
	i := plan.Grid.IndexOf(now)
	if i < 0 {
		return true
	}
	if plan.Intervals[i].Action == domain.ActionCharge {
		return true
	}
	prices := make([]float64, len(plan.Intervals))
	for j := range plan.Intervals {
		prices[j] = plan.Intervals[j].ImportPriceKWh
	}
	sort.Float64s(prices)
	cut := int(float64(len(prices)) * c.cheapFraction)
	if cut < 1 {
		cut = 1
	}
	return plan.Intervals[i].ImportPriceKWh <= prices[cut-1]
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
