package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

type SelectSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

type InputNumberSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

// Stream events, published on the actor system event stream.

// PlanUpdatedEvent announces a newly adopted plan.
type PlanUpdatedEvent struct {
	Plan *SchedulePlan
}

// TelemetryUpdatedEvent carries a fresh device snapshot.
type TelemetryUpdatedEvent struct {
	Snapshot TelemetrySnapshot
}

// ForecastChangedEvent signals that an upstream forecast materially
// changed and the plan should be recomputed.
type ForecastChangedEvent struct {
	Kind SignalKind
}

// EVBudgetUpdatedEvent carries the recomputed EV power share.
type EVBudgetUpdatedEvent struct {
	Budget EVBudget
}
