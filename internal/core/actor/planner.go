package actor

import (
	"context"
	"fmt"
	"time"

	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/events"
	"powerplan2mqtt/internal/core/service"
	. "powerplan2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

// PlannerActor owns the optimization cadence. Every pass runs on a
// background task so the mailbox stays responsive; results carry a
// sequence number and the store discards the ones a later pass already
// superseded.
type PlannerActor struct {
	behavior actor.Behavior
	stash    *Stash

	config      *config.Config
	pass        *service.PlanningPass
	planStore   *service.PlanStore
	eventStream *eventstream.EventStream

	cron         quartz.Scheduler
	cronCancel   context.CancelFunc
	subscription *eventstream.Subscription
	seq          uint64
	paused       bool
	passTimeout  time.Duration

	logger *zap.Logger
}

type planTick struct {
	reason string
}

type passResult struct {
	seq  uint64
	plan *domain.SchedulePlan
	err  error
}

func NewPlannerActor(cfg *config.Config, pass *service.PlanningPass, planStore *service.PlanStore,
	eventStream *eventstream.EventStream, logger *zap.Logger) *PlannerActor {
	passTimeout := time.Duration(cfg.Planner.PassTimeoutMillis) * time.Millisecond
	if passTimeout <= 0 {
		passTimeout = 30 * time.Second
	}
	act := &PlannerActor{
		config:      cfg,
		pass:        pass,
		planStore:   planStore,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		passTimeout: passTimeout,
		logger:      ActorLogger(domain.ACTOR_ID_PLANNER, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *PlannerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PlannerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("planner@default started")

		state.startCron(ctx)

		// forecast changes re-plan without waiting for the next cron fire
		root := ctx.ActorSystem().Root
		self := ctx.Self()
		state.subscription = state.eventStream.Subscribe(func(evt interface{}) {
			if fc, ok := evt.(domain.ForecastChangedEvent); ok {
				root.Send(self, planTick{reason: fmt.Sprintf("forecast changed: %s", fc.Kind)})
			}
		})

		// first pass right away
		ctx.Send(ctx.Self(), planTick{reason: "startup"})
	case *actor.Stopping:
		state.stopCron()
	case *actor.Restarting:
		state.stopCron()
	case domain.ActorHealthRequest:
		state.logger.Debug("planner@default ActorHealthRequest")
		actorState := "idle"
		if state.paused {
			actorState = "paused"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_PLANNER,
			Healthy: true,
			State:   actorState,
		})
	case planTick:
		state.logger.Debug("planner@default planTick", zap.String("reason", msg.reason))
		if state.paused {
			state.logger.Debug("planner@default paused, skipping pass")
			return
		}
		state.launchPass(ctx, msg.reason)
	case domain.TriggerReplanRequest:
		state.logger.Debug("planner@default TriggerReplanRequest", zap.String("reason", msg.Reason))
		accepted := !state.paused
		if accepted {
			state.launchPass(ctx, msg.Reason)
		}
		ForRequest(msg).Respond(ctx, domain.TriggerReplanResponse{
			Accepted: accepted,
		})
	case passResult:
		state.onPassResult(ctx, msg)
	case domain.GetPlanRequest:
		ForRequest(msg).Respond(ctx, domain.GetPlanResponse{
			Plan: state.planStore.ActivePlan(),
		})
	case domain.PlannerPauseRequest:
		state.logger.Sugar().Infof("planner@default pause %t", msg.Enable)
		changed := state.paused != msg.Enable
		state.paused = msg.Enable
		if changed {
			state.eventStream.Publish(events.PauseSwitchUpdateEvent(state.paused))
			if !state.paused {
				ctx.Send(ctx.Self(), planTick{reason: "resumed"})
			}
		}
		ForRequest(msg).Respond(ctx, domain.PlannerPauseResponse{
			Changed: changed,
		})
	case domain.PlannerGetPauseStateRequest:
		ForRequest(msg).Respond(ctx, domain.PlannerGetPauseStateResponse{
			State: state.paused,
		})
	default:
		state.logger.Debug("planner@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *PlannerActor) launchPass(ctx actor.Context, reason string) {
	state.seq++
	seq := state.seq
	now := time.Now()
	telemetry := state.planStore.LastTelemetry()
	pass := state.pass
	timeout := state.passTimeout

	state.logger.Info("planner: pass start", zap.Uint64("seq", seq), zap.String("reason", reason))

	NewBackgroundTaskNoError(ctx, func() *passResult {
		tctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		plan, err := pass.Run(tctx, now, seq, telemetry)
		return &passResult{seq: seq, plan: plan, err: err}
	}).Recover(func(err error) passResult {
		return passResult{seq: seq, err: err}
	}).WithTimeout(timeout + time.Second).PipeTo(ctx.Self())
}

func (state *PlannerActor) onPassResult(ctx actor.Context, result passResult) {
	if result.err != nil {
		state.logger.Error("planner: pass failed", zap.Uint64("seq", result.seq), zap.Error(result.err))
		if state.planStore.ActivePlan() == nil {
			// no schedule to fall back on, report unavailability
			for _, ev := range events.NoPlanUpdateEvents() {
				state.eventStream.Publish(ev)
			}
		}
		return
	}
	if !state.planStore.AdoptPlan(result.plan) {
		state.logger.Debug("planner: pass result superseded", zap.Uint64("seq", result.seq))
		return
	}
	state.logger.Info("planner: plan adopted",
		zap.Uint64("seq", result.plan.Seq),
		zap.String("provenance", result.plan.Provenance.String()),
		zap.Float64("predictedCost", result.plan.Cost.PredictedCost),
		zap.Float64("savings", result.plan.Cost.Savings))

	state.eventStream.Publish(domain.PlanUpdatedEvent{Plan: result.plan})
	for _, ev := range events.PlanToUpdateEvents(result.plan, time.Now()) {
		state.eventStream.Publish(ev)
	}
}

func (state *PlannerActor) startCron(ctx actor.Context) {
	interval := time.Duration(state.config.Planner.ReplanIntervalMinutes) * time.Minute
	if interval <= 0 {
		return
	}

	root := ctx.ActorSystem().Root
	self := ctx.Self()

	state.cron = quartz.NewStdScheduler()
	cronCtx, cancel := context.WithCancel(context.Background())
	state.cronCancel = cancel
	state.cron.Start(cronCtx)

	tickJob := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		root.Send(self, planTick{reason: "scheduled"})
		return true, nil
	})
	err := state.cron.ScheduleJob(quartz.NewJobDetail(tickJob, quartz.NewJobKey("replan")),
		quartz.NewSimpleTrigger(interval))
	if err != nil {
		state.logger.Error("planner: could not schedule re-plan job", zap.Error(err))
	}

	// the config-derived tariff and load curves restart at local
	// midnight, which is a forecast change like any other
	es := state.eventStream
	rolloverJob := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		es.Publish(domain.ForecastChangedEvent{Kind: domain.SignalImportPrice})
		return true, nil
	})
	rolloverTrigger, err := quartz.NewCronTriggerWithLoc("0 0 0 * * *", time.Local)
	if err == nil {
		err = state.cron.ScheduleJob(quartz.NewJobDetail(rolloverJob, quartz.NewJobKey("forecast-rollover")),
			rolloverTrigger)
	}
	if err != nil {
		state.logger.Error("planner: could not schedule rollover job", zap.Error(err))
	}
}

func (state *PlannerActor) stopCron() {
	if state.cron != nil {
		state.cron.Stop()
		state.cron = nil
	}
	if state.cronCancel != nil {
		state.cronCancel()
		state.cronCancel = nil
	}
	if state.subscription != nil {
		state.eventStream.Unsubscribe(state.subscription)
		state.subscription = nil
	}
}
