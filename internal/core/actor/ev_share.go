package actor

import (
	"context"
	"fmt"
	"time"

	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/events"
	"powerplan2mqtt/internal/core/port"
	"powerplan2mqtt/internal/core/service"
	. "powerplan2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// EVShareActor recomputes the EV charging budget on every telemetry
// snapshot and pushes the resulting current to the charger. The charger
// write runs on a background task; an unreachable charger only skips
// the adjustment.
type EVShareActor struct {
	behavior actor.Behavior
	stash    *Stash

	config       *config.Config
	calc         *service.EVShareCalculator
	charger      port.EVCharger
	planStore    *service.PlanStore
	eventStream  *eventstream.EventStream
	subscription *eventstream.Subscription

	mode         domain.EVMode
	lastAppliedA float64

	logger *zap.Logger
}

type evChargerResult struct {
	appliedA float64
	budget   domain.EVBudget
	err      error
}

func NewEVShareActor(cfg *config.Config, calc *service.EVShareCalculator, charger port.EVCharger,
	planStore *service.PlanStore, eventStream *eventstream.EventStream, logger *zap.Logger) *EVShareActor {
	mode, ok := domain.ParseEVMode(cfg.EV.Mode)
	if !ok {
		mode = domain.EVModeOff
	}
	act := &EVShareActor{
		config:      cfg,
		calc:        calc,
		charger:     charger,
		planStore:   planStore,
		eventStream: eventStream,
		mode:        mode,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_EV, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *EVShareActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *EVShareActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("ev_share@default started")
		root := ctx.ActorSystem().Root
		self := ctx.Self()
		state.subscription = state.eventStream.Subscribe(func(evt interface{}) {
			if te, ok := evt.(domain.TelemetryUpdatedEvent); ok {
				root.Send(self, te)
			}
		})
		state.eventStream.Publish(events.EVModeUpdateEvent(state.mode))
	case *actor.Stopping:
		if state.subscription != nil {
			state.eventStream.Unsubscribe(state.subscription)
			state.subscription = nil
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("ev_share@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_EV,
			Healthy: true,
			State:   state.mode.String(),
		})
	case domain.TelemetryUpdatedEvent:
		state.logger.Debug("ev_share@default TelemetryUpdatedEvent")
		state.recompute(ctx, msg.Snapshot)
	case domain.EVSetModeRequest:
		state.logger.Sugar().Infof("ev_share@default set mode %s", msg.Mode)
		if msg.Mode != state.mode {
			state.mode = msg.Mode
			state.eventStream.Publish(events.EVModeUpdateEvent(state.mode))
			if snap := state.planStore.LastTelemetry(); snap != nil {
				state.recompute(ctx, *snap)
			}
		}
		ForRequest(msg).Respond(ctx, domain.EVSetModeResponse{
			Mode: state.mode,
		})
	case domain.EVGetModeRequest:
		ForRequest(msg).Respond(ctx, domain.EVGetModeResponse{
			Mode: state.mode,
		})
	case domain.SetEVCurrentRequest:
		// direct override, e.g. from the HTTP API
		state.applyCurrent(ctx, msg.CurrentA, domain.EVBudget{
			Time:             time.Now(),
			RequestedCurrent: msg.CurrentA,
			Charging:         msg.CurrentA > 0,
			Reason:           "manual override",
		})
	case evChargerResult:
		state.onChargerResult(msg)
	default:
		state.logger.Debug("ev_share@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *EVShareActor) recompute(ctx actor.Context, snapshot domain.TelemetrySnapshot) {
	evPowerW := state.lastAppliedA * state.config.EV.Voltage * float64(int(state.config.EV.Phases))
	budget := state.calc.Compute(state.mode, snapshot, evPowerW,
		state.planStore.ActivePlan(), state.lastAppliedA, time.Now())

	if budget.Charging {
		if budget.RequestedCurrent != state.lastAppliedA {
			state.applyCurrent(ctx, budget.RequestedCurrent, budget)
			return
		}
	} else if state.lastAppliedA > 0 {
		state.applyCurrent(ctx, 0, budget)
		return
	}
	state.publishBudget(budget)
}

func (state *EVShareActor) applyCurrent(ctx actor.Context, amps float64, budget domain.EVBudget) {
	charger := state.charger
	NewBackgroundTaskNoError(ctx, func() *evChargerResult {
		tctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if amps <= 0 {
			err := charger.Stop(tctx)
			return &evChargerResult{appliedA: 0, budget: budget, err: err}
		}
		applied, err := charger.SetCurrent(tctx, amps)
		return &evChargerResult{appliedA: applied, budget: budget, err: err}
	}).Recover(func(err error) evChargerResult {
		return evChargerResult{budget: budget, err: err}
	}).WithTimeout(4 * time.Second).PipeTo(ctx.Self())
}

func (state *EVShareActor) onChargerResult(result evChargerResult) {
	if result.err != nil {
		state.logger.Error("ev_share: charger adjustment failed", zap.Error(result.err))
		return
	}
	state.lastAppliedA = result.appliedA
	budget := result.budget
	budget.RequestedCurrent = result.appliedA
	state.publishBudget(budget)
}

func (state *EVShareActor) publishBudget(budget domain.EVBudget) {
	state.planStore.SetEVBudget(budget)
	state.eventStream.Publish(domain.EVBudgetUpdatedEvent{Budget: budget})
	for _, ev := range events.EVBudgetToUpdateEvents(budget) {
		state.eventStream.Publish(ev)
	}
}
