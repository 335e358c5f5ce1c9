package actor

import (
	"context"
	"fmt"
	"time"

	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/port"
	"powerplan2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// StorageActor serializes access to the storage device. Register reads
// and writes run on a background task so the mailbox never blocks on
// the wire; requests arriving mid-operation are stashed.
type StorageActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	device   port.StorageDevice
	timeout  time.Duration
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewStorageActor(device port.StorageDevice, timeout time.Duration, logger *zap.Logger) *StorageActor {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	act := &StorageActor{
		device:   device,
		timeout:  timeout,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_STORAGE, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *StorageActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *StorageActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("storage@starting started")
		if state.device != nil {
			err := state.device.Open()
			if err != nil {
				panic(err)
			}
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		if state.device != nil {
			state.device.Close()
		}
	default:
		state.logger.Debug("storage@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *StorageActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("storage@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_STORAGE,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetTelemetryRequest:
		state.logger.Debug("storage@default: GetTelemetryRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.readTelemetry),
			mapTaskResult[domain.GetTelemetryResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetTelemetryResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case domain.ApplyActionRequest:
		state.logger.Debug("storage@default: ApplyActionRequest",
			zap.String("action", msg.Action.String()), zap.Float64("powerKW", msg.PowerKW))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.ApplyActionResponse {
			a := state.applyAction(msg.Action, msg.PowerKW)
			return &a
		}),
			mapTaskResult[domain.ApplyActionResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ApplyActionResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingDevice)
	case *actor.Stopping:
		if state.device != nil {
			state.device.Close()
		}
	default:
		state.logger.Debug("storage@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *StorageActor) WaitingDevice(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("storage@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		if state.device != nil {
			state.device.Close()
		}
	default:
		state.logger.Debug("storage@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *StorageActor) readTelemetry() (*domain.GetTelemetryResponse, error) {
	tctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	snapshot, err := a.device.Telemetry(tctx)
	if err != nil {
		a.logger.Error("storage: telemetry read failed", zap.Error(err))
		return nil, err
	}
	return &domain.GetTelemetryResponse{
		Snapshot: snapshot,
	}, nil
}

func (a *StorageActor) applyAction(action domain.Action, powerKW float64) domain.ApplyActionResponse {
	tctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	err := a.device.ApplyAction(tctx, action, powerKW)
	if err != nil {
		a.logger.Error("storage: apply action failed", zap.Error(err))
		return domain.ApplyActionResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	}
	return domain.ApplyActionResponse{
		Applied: true,
	}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
