package domain

// EVMode selects how the load-sharing coordinator drives the charger.
type EVMode int

const (
	EVModeOff EVMode = iota
	EVModeSmart
	EVModeSolarOnly
	EVModeImmediate
	EVModeScheduled
)

func ParseEVMode(s string) (EVMode, bool) {
	switch s {
	case "off":
		return EVModeOff, true
	case "smart":
		return EVModeSmart, true
	case "solar_only":
		return EVModeSolarOnly, true
	case "immediate":
		return EVModeImmediate, true
	case "scheduled":
		return EVModeScheduled, true
	}
	return EVModeOff, false
}

func (m EVMode) String() string {
	switch m {
	case EVModeSmart:
		return "smart"
	case EVModeSolarOnly:
		return "solar_only"
	case EVModeImmediate:
		return "immediate"
	case EVModeScheduled:
		return "scheduled"
	default:
		return "off"
	}
}

// EVChargerModel describes the charger circuit the coordinator
// arbitrates power for.
type EVChargerModel struct {
	GridCapacityW float64
	Voltage       float64
	Phases        int
	MinCurrentA   float64
	MaxCurrentA   float64
}

// MinPowerW returns the lowest power the charger can deliver without
// stopping.
func (m EVChargerModel) MinPowerW() float64 {
	return m.MinCurrentA * m.Voltage * float64(m.Phases)
}

func (m EVChargerModel) MaxPowerW() float64 {
	return m.MaxCurrentA * m.Voltage * float64(m.Phases)
}

// CurrentFor converts a power budget to a per-phase current, clamped to
// the charger's range. Returns 0 when the budget cannot sustain the
// minimum current.
func (m EVChargerModel) CurrentFor(powerW float64) float64 {
	if m.Voltage <= 0 || m.Phases <= 0 {
		return 0
	}
	amps := powerW / (m.Voltage * float64(m.Phases))
	if amps < m.MinCurrentA {
		return 0
	}
	if amps > m.MaxCurrentA {
		return m.MaxCurrentA
	}
	return amps
}
