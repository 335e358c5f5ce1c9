package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "powerplan2mqtt/internal/adapter/actor"
	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"
	"powerplan2mqtt/internal/core/service"
	. "powerplan2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type StorageActorProvider func() *adactor.StorageActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	planStore          *service.PlanStore
	pass               *service.PlanningPass
	evCalc             *service.EVShareCalculator
	evCharger          port.EVCharger

	storageActor   *actor.PID
	mqttActor      *actor.PID
	plannerActor   *actor.PID
	executorActor  *actor.PID
	telemetryActor *actor.PID
	evActor        *actor.PID

	storageActorProvider StorageActorProvider
	mqttActorProvider    MQTTActorProvider
	logger               *zap.Logger
}

type healthCheckResult struct {
	storageActorHealthy bool
	mqttActorHealthy    bool
	plannerActorHealthy bool
	checksReceived      int
	respondTo           *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, planStore *service.PlanStore, pass *service.PlanningPass,
	evCalc *service.EVShareCalculator, evCharger port.EVCharger,
	storageActorProvider StorageActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:               config,
		behavior:             actor.NewBehavior(),
		stash:                &Stash{},
		logger:               ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:          &eventstream.EventStream{},
		planStore:            planStore,
		pass:                 pass,
		evCalc:               evCalc,
		evCharger:            evCharger,
		storageActorProvider: storageActorProvider,
		mqttActorProvider:    mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start Storage child
		storageActorPID, err := state.startStorageActor(ctx)
		if err != nil {
			panic(err)
		}
		state.storageActor = storageActorPID

		// start MQTT child
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		// start Planner child
		plannerActorPID, err := state.startPlannerActor(ctx)
		if err != nil {
			panic(err)
		}
		state.plannerActor = plannerActorPID

		// start Executor child
		executorActorPID, err := state.startExecutorActor(ctx)
		if err != nil {
			panic(err)
		}
		state.executorActor = executorActorPID

		// start Telemetry child
		telemetryActorPID, err := state.startTelemetryActor(ctx)
		if err != nil {
			panic(err)
		}
		state.telemetryActor = telemetryActorPID

		// start EV coordinator
		if state.config.EV.Enabled {
			evActorPID, err := state.startEVShareActor(ctx)
			if err != nil {
				panic(err)
			}
			state.evActor = evActorPID
		}

		// start HA Discovery
		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		// every sensor update on the bus ends up on MQTT
		state.forwardSensorUpdates(ctx)

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// Storage Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.storageActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_STORAGE,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// Planner Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.plannerActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_PLANNER,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// redirect parsedCommand to actor
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err == nil && cmd != nil {
				switch pcmd := cmd.(type) {
				case domain.PlannerPauseRequest:
					ctx.Send(state.plannerActor, pcmd)
					ctx.Send(state.executorActor, pcmd)
				case domain.EVSetModeRequest:
					if state.evActor != nil {
						ctx.Send(state.evActor, pcmd)
					}
				}
			}
		}
	case domain.GetPlanRequest:
		// forwarded so API clients only need the master PID
		ctx.Forward(state.plannerActor)
	case domain.TriggerReplanRequest:
		ctx.Forward(state.plannerActor)
	case *actor.Terminated:
		// if some actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_STORAGE) {
			state.logger.Error("master@default storage error")
			panic(errors.New("storage terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_STORAGE {
				state.currentHealthCheck.storageActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_MQTT {
				state.currentHealthCheck.mqttActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_PLANNER {
				state.currentHealthCheck.plannerActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) forwardSensorUpdates(ctx actor.Context) {
	root := ctx.ActorSystem().Root
	mqttActor := state.mqttActor
	state.eventStream.Subscribe(func(evt interface{}) {
		if se, ok := evt.(domain.SensorUpdateEvent); ok {
			root.Send(mqttActor, domain.PublishSensorUpdateRequest{
				Event: se,
			})
		}
	})
}

func (state *MasterOfPuppetsActor) startStorageActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	storageProps := actor.PropsFromProducer(func() actor.Actor {
		return state.storageActorProvider()
	}, actor.WithSupervisor(supervisor))
	storageActorPID, err := ctx.SpawnNamed(storageProps, domain.ACTOR_ID_STORAGE)
	if err != nil {
		return nil, err
	}

	return storageActorPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterOfPuppetsActor) startPlannerActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	plannerProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPlannerActor(&state.config, state.pass, state.planStore, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	plannerActorPID, err := ctx.SpawnNamed(plannerProps, domain.ACTOR_ID_PLANNER)
	if err != nil {
		return nil, err
	}

	return plannerActorPID, nil
}

func (state *MasterOfPuppetsActor) startExecutorActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	executorProps := actor.PropsFromProducer(func() actor.Actor {
		return NewExecutorActor(&state.config, state.storageActor, state.planStore, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	executorActorPID, err := ctx.SpawnNamed(executorProps, domain.ACTOR_ID_EXECUTOR)
	if err != nil {
		return nil, err
	}

	return executorActorPID, nil
}

func (state *MasterOfPuppetsActor) startTelemetryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewAllForOneStrategy(1, 10*time.Second, decider)

	telemetryProps := actor.PropsFromProducer(func() actor.Actor {
		return NewTelemetryActor(&state.config, state.storageActor, state.plannerActor, state.planStore, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	telemetryActorPID, err := ctx.SpawnNamed(telemetryProps, domain.ACTOR_ID_TELEMETRY)
	if err != nil {
		return nil, err
	}

	return telemetryActorPID, nil
}

func (state *MasterOfPuppetsActor) startEVShareActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	evProps := actor.PropsFromProducer(func() actor.Actor {
		return NewEVShareActor(&state.config, state.evCalc, state.evCharger, state.planStore, state.eventStream, state.logger)
	}, actor.WithSupervisor(supervisor))
	evActorPID, err := ctx.SpawnNamed(evProps, domain.ACTOR_ID_EV)
	if err != nil {
		return nil, err
	}

	return evActorPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *healthCheckResult) reset() {
	state.storageActorHealthy = false
	state.mqttActorHealthy = false
	state.plannerActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 3
}

func (state *healthCheckResult) allHealthy() bool {
	return state.storageActorHealthy && state.mqttActorHealthy && state.plannerActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
