package actor

import (
	"fmt"
	"math"
	"time"

	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/events"
	"powerplan2mqtt/internal/core/service"
	. "powerplan2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// TelemetryActor polls the storage device and fans the snapshot out to
// the event stream and the plan store. When the measured state of
// charge drifts from the active schedule it asks the planner for a
// fresh pass.
type TelemetryActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config       *config.Config
	storageActor *actor.PID
	plannerActor *actor.PID
	planStore    *service.PlanStore
	eventStream  *eventstream.EventStream

	// last plan already flagged for drift, to trigger once per plan
	driftFlaggedSeq uint64

	logger *zap.Logger
}

type telemetryTick struct {
}

func NewTelemetryActor(cfg *config.Config, storageActor *actor.PID, plannerActor *actor.PID,
	planStore *service.PlanStore, eventStream *eventstream.EventStream, logger *zap.Logger) *TelemetryActor {
	act := &TelemetryActor{
		config:       cfg,
		storageActor: storageActor,
		plannerActor: plannerActor,
		planStore:    planStore,
		eventStream:  eventStream,
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		logger:       ActorLogger(domain.ACTOR_ID_TELEMETRY, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *TelemetryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *TelemetryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("telemetry@default started")
		if state.config.Telemetry.PollIntervalMillis > 0 {
			state.scheduler = scheduler.NewTimerScheduler(ctx)
			state.scheduler.RequestOnce(0, ctx.Self(), telemetryTick{})
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("telemetry@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_TELEMETRY,
			Healthy: true,
			State:   "idle",
		})
	case telemetryTick:
		state.logger.Debug("telemetry@default tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.storageActor, domain.GetTelemetryRequest{}, 2*time.Second), func(err error) any {
			return domain.GetTelemetryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		// schedule next tick
		state.scheduler.RequestOnce(time.Duration(state.config.Telemetry.PollIntervalMillis)*time.Millisecond, ctx.Self(), telemetryTick{})
		state.behavior.BecomeStacked(state.WaitingTelemetryReceive)
	default:
		state.logger.Debug("telemetry@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *TelemetryActor) WaitingTelemetryReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetTelemetryResponse:
		if msg.HasResponseError() {
			state.logger.Error("telemetry@waiting GetTelemetryResponse error", zap.Error(msg.GetResponseError()))
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
			return
		}
		state.logger.Debug("telemetry@waiting GetTelemetryResponse")
		if msg.Snapshot != nil {
			state.onSnapshot(ctx, *msg.Snapshot)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("telemetry@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *TelemetryActor) onSnapshot(ctx actor.Context, snapshot domain.TelemetrySnapshot) {
	state.planStore.SetTelemetry(snapshot)
	state.eventStream.Publish(domain.TelemetryUpdatedEvent{Snapshot: snapshot})
	for _, ev := range events.TelemetryToUpdateEvents(&snapshot) {
		state.eventStream.Publish(ev)
	}

	if drift, ok := state.planDrift(snapshot); ok {
		state.logger.Info("telemetry: SoC drifted from schedule, requesting re-plan",
			zap.Float64("drift", drift))
		ctx.Send(state.plannerActor, domain.TriggerReplanRequest{
			Reason: fmt.Sprintf("soc drift %.3f", drift),
		})
	}
}

// planDrift compares the measured state of charge against the active
// schedule at the current instant.
func (state *TelemetryActor) planDrift(snapshot domain.TelemetrySnapshot) (float64, bool) {
	threshold := state.config.Planner.SoCDriftThreshold
	if threshold <= 0 {
		return 0, false
	}
	plan := state.planStore.ActivePlan()
	if plan == nil || plan.Seq == state.driftFlaggedSeq {
		return 0, false
	}
	idx := plan.Grid.IndexOf(snapshot.Time)
	if idx < 0 || idx >= len(plan.Intervals) {
		return 0, false
	}
	drift := math.Abs(snapshot.SoC - plan.Intervals[idx].SoC)
	if drift > threshold {
		state.driftFlaggedSeq = plan.Seq
		return drift, true
	}
	return drift, false
}
