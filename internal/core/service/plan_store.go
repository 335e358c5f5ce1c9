package service

import (
	"sync/atomic"

	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"
)

// PlanStore holds the state shared between the planning loop and the
// telemetry, HTTP and EV paths: the active plan, the last device
// snapshot and the last EV budget. Each is an immutable value replaced
// atomically, so readers always see a complete snapshot and never block
// on a solve in progress.
type PlanStore struct {
	plan      atomic.Pointer[domain.SchedulePlan]
	telemetry atomic.Pointer[domain.TelemetrySnapshot]
	evBudget  atomic.Pointer[domain.EVBudget]
}

var _ port.PlanReader = (*PlanStore)(nil)

func NewPlanStore() *PlanStore {
	return &PlanStore{}
}

// AdoptPlan publishes a plan if it is strictly newer than the active
// one. A pass that finished after being superseded is discarded here.
func (s *PlanStore) AdoptPlan(plan *domain.SchedulePlan) bool {
	for {
		cur := s.plan.Load()
		if cur != nil && plan.Seq <= cur.Seq {
			return false
		}
		if s.plan.CompareAndSwap(cur, plan) {
			return true
		}
	}
}

func (s *PlanStore) ActivePlan() *domain.SchedulePlan {
	return s.plan.Load()
}

func (s *PlanStore) SetTelemetry(snap domain.TelemetrySnapshot) {
	s.telemetry.Store(&snap)
}

func (s *PlanStore) LastTelemetry() *domain.TelemetrySnapshot {
	return s.telemetry.Load()
}

func (s *PlanStore) SetEVBudget(b domain.EVBudget) {
	s.evBudget.Store(&b)
}

func (s *PlanStore) LastEVBudget() *domain.EVBudget {
	return s.evBudget.Load()
}
