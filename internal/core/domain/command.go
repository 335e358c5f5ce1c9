package domain

import "fmt"

// PlannerRequest

type PlannerRequest interface {
	ActorRequest
	PlannerCommand() string
}

type PlannerRequestMixIn struct {
	ActorRequestMixIn
}

func (r PlannerRequestMixIn) PlannerCommand() string {
	return fmt.Sprintf("%T", r)
}

// PlannerResponse

type PlannerResponse interface {
	ActorResponse
	PlannerResponse() string
}

type PlannerResponseMixIn struct {
	ActorResponse
}

func (r PlannerResponseMixIn) PlannerResponse() string {
	return fmt.Sprintf("%T", r)
}

// Planner commands, driven from MQTT command topics.

type PlannerPauseRequest struct {
	PlannerRequestMixIn
	Enable bool
}

type PlannerPauseResponse struct {
	PlannerResponseMixIn
	Changed bool
}

type PlannerGetPauseStateRequest struct {
	PlannerRequestMixIn
}

type PlannerGetPauseStateResponse struct {
	PlannerResponseMixIn
	State bool
}

type EVSetModeRequest struct {
	PlannerRequestMixIn
	Mode EVMode
}

type EVSetModeResponse struct {
	PlannerResponseMixIn
	Mode EVMode
}

type EVGetModeRequest struct {
	PlannerRequestMixIn
}

type EVGetModeResponse struct {
	PlannerResponseMixIn
	Mode EVMode
}

// ensure interface compliance
var _ PlannerRequest = (*PlannerPauseRequest)(nil)
