package domain

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_STORAGE      = "storage"
	ACTOR_ID_TELEMETRY    = "telemetry"
	ACTOR_ID_PLANNER      = "planner"
	ACTOR_ID_EXECUTOR     = "executor"
	ACTOR_ID_EV           = "ev_share"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetTelemetryRequest struct {
	ActorRequestMixIn
}

type GetTelemetryResponse struct {
	ActorResponseMixIn
	Snapshot *TelemetrySnapshot
}

type ApplyActionRequest struct {
	ActorRequestMixIn
	Action  Action
	PowerKW float64
}

type ApplyActionResponse struct {
	ActorResponseMixIn
	Applied bool
}

type SetEVCurrentRequest struct {
	ActorRequestMixIn
	CurrentA float64
}

type SetEVCurrentResponse struct {
	ActorResponseMixIn
	AppliedA float64
}

type GetPlanRequest struct {
	ActorRequestMixIn
}

type GetPlanResponse struct {
	ActorResponseMixIn
	Plan *SchedulePlan
}

type TriggerReplanRequest struct {
	ActorRequestMixIn
	Reason string
}

type TriggerReplanResponse struct {
	ActorResponseMixIn
	Accepted bool
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	Selects      []GenericSelect
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
