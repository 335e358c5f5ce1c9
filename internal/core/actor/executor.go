package actor

import (
	"fmt"
	"time"

	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"
	. "powerplan2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// ExecutorActor walks the active schedule and pushes each window's
// action to the storage device at interval boundaries. A rejected write
// is logged and retried on the next boundary; the schedule itself is
// never altered here.
type ExecutorActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config       *config.Config
	storageActor *actor.PID
	planReader   port.PlanReader
	eventStream  *eventstream.EventStream
	subscription *eventstream.Subscription

	paused      bool
	lastAction  domain.Action
	lastPowerKW float64
	applied     bool

	logger *zap.Logger
}

type executorTick struct {
}

func NewExecutorActor(cfg *config.Config, storageActor *actor.PID, planReader port.PlanReader,
	eventStream *eventstream.EventStream, logger *zap.Logger) *ExecutorActor {
	act := &ExecutorActor{
		config:       cfg,
		storageActor: storageActor,
		planReader:   planReader,
		eventStream:  eventStream,
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		logger:       ActorLogger(domain.ACTOR_ID_EXECUTOR, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *ExecutorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ExecutorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("executor@default started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduler.RequestOnce(state.untilNextBoundary(time.Now()), ctx.Self(), executorTick{})

		// a fresh plan is applied immediately, not at the next boundary
		root := ctx.ActorSystem().Root
		self := ctx.Self()
		state.subscription = state.eventStream.Subscribe(func(evt interface{}) {
			if _, ok := evt.(domain.PlanUpdatedEvent); ok {
				root.Send(self, executorTick{})
			}
		})
	case *actor.Stopping:
		if state.subscription != nil {
			state.eventStream.Unsubscribe(state.subscription)
			state.subscription = nil
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("executor@default ActorHealthRequest")
		actorState := "idle"
		if state.paused {
			actorState = "paused"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_EXECUTOR,
			Healthy: true,
			State:   actorState,
		})
	case executorTick:
		state.logger.Debug("executor@default tick")
		state.scheduler.RequestOnce(state.untilNextBoundary(time.Now()), ctx.Self(), executorTick{})
		state.execute(ctx, time.Now())
	case domain.PlannerPauseRequest:
		// on pause, hand the device back to its own automatic mode
		state.logger.Sugar().Infof("executor@default pause %t", msg.Enable)
		state.paused = msg.Enable
		if state.paused {
			state.apply(ctx, domain.ActionSelfConsumption, 0)
		} else {
			state.execute(ctx, time.Now())
		}
	case domain.ApplyActionResponse:
		if msg.HasResponseError() {
			// rejected writes are not retried until the next boundary
			state.logger.Error("executor@default apply rejected",
				zap.Error(domain.ExecutionRejectedError(state.lastAction, msg.GetResponseError())))
			state.applied = false
		}
	default:
		state.logger.Debug("executor@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ExecutorActor) execute(ctx actor.Context, now time.Time) {
	if state.paused {
		return
	}
	plan := state.planReader.ActivePlan()
	if plan == nil {
		return
	}
	idx := plan.Grid.IndexOf(now)
	if idx < 0 || idx >= len(plan.Intervals) {
		// schedule exhausted, fall back to the device's own control
		state.apply(ctx, domain.ActionSelfConsumption, 0)
		return
	}
	decision := plan.Intervals[idx]
	var powerKW float64
	switch decision.Action {
	case domain.ActionCharge:
		powerKW = decision.BatteryKW
	case domain.ActionExport:
		powerKW = -decision.BatteryKW
	}
	state.apply(ctx, decision.Action, powerKW)
}

func (state *ExecutorActor) apply(ctx actor.Context, action domain.Action, powerKW float64) {
	if state.applied && action == state.lastAction && powerKW == state.lastPowerKW {
		return
	}
	state.logger.Info("executor: applying action",
		zap.String("action", action.String()), zap.Float64("powerKW", powerKW))
	state.lastAction = action
	state.lastPowerKW = powerKW
	state.applied = true
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.storageActor, domain.ApplyActionRequest{
		Action:  action,
		PowerKW: powerKW,
	}, 3*time.Second), func(err error) any {
		return domain.ApplyActionResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *ExecutorActor) untilNextBoundary(now time.Time) time.Duration {
	interval := time.Duration(state.config.Planner.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	next := now.Truncate(interval).Add(interval)
	return next.Sub(now)
}
