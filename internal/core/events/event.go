package events

import (
	"time"

	. "powerplan2mqtt/internal/core/domain"
)

// PlanToUpdateEvents maps a freshly adopted plan to the sensor surface:
// current/next action, cost summary and plan diagnostics.
func PlanToUpdateEvents(plan *SchedulePlan, now time.Time) []any {
	var events []any

	current, next := plan.WindowAt(now)
	currentAction := "not_available"
	currentEnd := ""
	if current != nil {
		currentAction = current.Action.String()
		currentEnd = current.End.Format(time.RFC3339)
	}
	nextAction := "not_available"
	nextStart := ""
	if next != nil {
		nextAction = next.Action.String()
		nextStart = next.Start.Format(time.RFC3339)
	}

	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CURRENT_ACTION,
		},
		Value: currentAction,
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CURRENT_ACTION_END,
		},
		Value: currentEnd,
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_NEXT_ACTION,
		},
		Value: nextAction,
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_NEXT_ACTION_START,
		},
		Value: nextStart,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PREDICTED_COST,
		},
		Value:    plan.Cost.PredictedCost,
		Decimals: 2,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PREDICTED_SAVINGS,
		},
		Value:    plan.Cost.Savings,
		Decimals: 2,
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PLAN_PROVENANCE,
		},
		Value: plan.Provenance.String(),
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PLAN_CONFIDENCE,
		},
		Value: plan.Confidence.String(),
	})
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PLAN_DEGRADED,
		},
		Value: plan.Provenance.Degraded(),
	})

	return events
}

// NoPlanUpdateEvents is the explicit "not available" surface published
// before the first pass completes.
func NoPlanUpdateEvents() []any {
	var events []any
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_CURRENT_ACTION,
		},
		Value: "not_available",
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_NEXT_ACTION,
		},
		Value: "not_available",
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PLAN_PROVENANCE,
		},
		Value: ProvenanceNone.String(),
	})
	return events
}

func TelemetryToUpdateEvents(t *TelemetrySnapshot) []any {
	var events []any

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_SOC,
		},
		Value:    t.SoC * 100,
		Decimals: 2,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_POWER,
		},
		Value:    t.BatteryPowerW,
		Decimals: 1,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SOLAR_POWER,
		},
		Value:    t.SolarPowerW,
		Decimals: 1,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_HOUSE_POWER,
		},
		Value:    t.LoadPowerW,
		Decimals: 1,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_GRID_POWER,
		},
		Value:    t.GridPowerW,
		Decimals: 1,
	})

	return events
}

func EVBudgetToUpdateEvents(b EVBudget) []any {
	var events []any

	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_EV_AVAILABLE_POWER,
		},
		Value:    b.AvailableW,
		Decimals: 1,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_EV_REQUESTED_POWER,
		},
		Value:    b.RequestedW,
		Decimals: 1,
	})
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_EV_CURRENT,
		},
		Value:    b.RequestedCurrent,
		Decimals: 1,
	})
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_EV_CHARGING,
		},
		Value: b.Charging,
	})

	return events
}

func PauseSwitchUpdateEvent(paused bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_OPTIMIZER_PAUSE,
		},
		Value: paused,
	}
}

func EVModeUpdateEvent(mode EVMode) any {
	return SelectSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SELECT_ID_EV_MODE,
		},
		Value: mode.String(),
	}
}
