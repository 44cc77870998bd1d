package actor

import (
	"fmt"
	"time"

	"github.com/spockenergy/sma2spock/internal/config"
	"github.com/spockenergy/sma2spock/internal/core/domain"
	"github.com/spockenergy/sma2spock/internal/core/events"
	. "github.com/spockenergy/sma2spock/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	cycleReadTimeout  = 15 * time.Second
	cyclePushTimeout  = 20 * time.Second
	cycleApplyTimeout = 15 * time.Second
)

// CycleActor drives the fetch, push, apply loop. One cycle is in flight at
// a time; a tick that lands mid-cycle is dropped, the next tick is the
// retry.
type CycleActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	modbusActor *actor.PID
	spockActor  *actor.PID
	eventStream *eventstream.EventStream
	interval    time.Duration
	plantID     string
	enabled     bool

	lastSnapshot *domain.TelemetrySnapshot

	logger *zap.Logger
}

type cycleTick struct {
}

func NewCycleActor(config *config.Config, modbusActor *actor.PID, spockActor *actor.PID,
	eventStream *eventstream.EventStream, logger *zap.Logger) *CycleActor {
	act := &CycleActor{
		modbusActor:  modbusActor,
		spockActor:   spockActor,
		eventStream:  eventStream,
		interval:     time.Duration(config.Poll.IntervalSeconds) * time.Second,
		plantID:      config.Spock.PlantID,
		enabled:      true,
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		logger:       ActorLogger(domain.ACTOR_ID_CYCLE, logger),
		lastSnapshot: domain.ZeroTelemetrySnapshot(config.Spock.PlantID),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *CycleActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *CycleActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("cycle@default started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduler.RequestOnce(state.interval, ctx.Self(), cycleTick{})
		state.eventStream.Publish(events.PollingSwitchUpdateEvent(state.enabled))
	case domain.ActorHealthRequest:
		state.logger.Debug("cycle@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CYCLE,
			Healthy: true,
			State:   "idle",
		})
	case cycleTick:
		state.logger.Debug("cycle@default tick")
		state.scheduler.RequestOnce(state.interval, ctx.Self(), cycleTick{})
		if !state.enabled {
			state.logger.Debug("cycle@default polling disabled, skipping")
			return
		}
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.modbusActor, domain.ReadTelemetryRequest{}, cycleReadTimeout), func(err error) any {
			return domain.ReadTelemetryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.BecomeStacked(state.WaitingTelemetryReceive)
	case domain.SetPollingEnabledRequest:
		state.setPollingEnabled(ctx, msg.Enabled)
	case domain.GetPollingEnabledRequest:
		state.logger.Debug("cycle@default: GetPollingEnabledRequest")
		ctx.Respond(domain.GetPollingEnabledResponse{Enabled: state.enabled})
	default:
		state.logger.Debug("cycle@default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *CycleActor) WaitingTelemetryReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ReadTelemetryResponse:
		snapshot := msg.Snapshot
		if msg.HasResponseError() || snapshot == nil {
			// heartbeat: the EMS keeps seeing the plant, with nothing allowed
			state.logger.Warn("cycle@waitingTelemetry read failed, pushing zero snapshot", zap.Error(msg.GetResponseError()))
			snapshot = domain.ZeroTelemetrySnapshot(state.plantID)
		}
		state.lastSnapshot = snapshot

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.spockActor, domain.PushTelemetryRequest{Snapshot: snapshot}, cyclePushTimeout), func(err error) any {
			return domain.PushTelemetryResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.UnbecomeStacked()
		state.behavior.BecomeStacked(state.WaitingPushReceive)
	case cycleTick:
		state.logger.Debug("cycle@waitingTelemetry tick while busy, dropped")
		state.scheduler.RequestOnce(state.interval, ctx.Self(), cycleTick{})
	case domain.SetPollingEnabledRequest:
		state.setPollingEnabled(ctx, msg.Enabled)
	default:
		state.logger.Debug("cycle@waitingTelemetry: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CycleActor) WaitingPushReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.PushTelemetryResponse:
		state.publishSensorUpdates()

		command := msg.Command
		if msg.HasResponseError() {
			// no command received: hand the battery back to the inverter,
			// once, and let the next tick retry the push
			if msg.InvalidToken {
				state.logger.Error("cycle@waitingPush EMS rejected token, falling back to auto")
			} else {
				state.logger.Warn("cycle@waitingPush push failed, falling back to auto", zap.Error(msg.GetResponseError()))
			}
			command = domain.AutoCommand()
		}

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.modbusActor, domain.ApplyOperationRequest{Command: command}, cycleApplyTimeout), func(err error) any {
			return domain.ApplyOperationResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.UnbecomeStacked()
		state.behavior.BecomeStacked(state.WaitingApplyReceive)
	case cycleTick:
		state.logger.Debug("cycle@waitingPush tick while busy, dropped")
		state.scheduler.RequestOnce(state.interval, ctx.Self(), cycleTick{})
	case domain.SetPollingEnabledRequest:
		state.setPollingEnabled(ctx, msg.Enabled)
	default:
		state.logger.Debug("cycle@waitingPush: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CycleActor) WaitingApplyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ApplyOperationResponse:
		if msg.HasResponseError() {
			state.logger.Warn("cycle@waitingApply apply failed", zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Debug("cycle@waitingApply cycle complete")
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case cycleTick:
		state.logger.Debug("cycle@waitingApply tick while busy, dropped")
		state.scheduler.RequestOnce(state.interval, ctx.Self(), cycleTick{})
	case domain.SetPollingEnabledRequest:
		state.setPollingEnabled(ctx, msg.Enabled)
	default:
		state.logger.Debug("cycle@waitingApply: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CycleActor) setPollingEnabled(ctx actor.Context, enabled bool) {
	state.logger.Info("polling switched", zap.Bool("enabled", enabled))
	state.enabled = enabled
	state.eventStream.Publish(events.PollingSwitchUpdateEvent(enabled))
	if ctx.Sender() != nil {
		ctx.Respond(domain.SetPollingEnabledResponse{Enabled: enabled})
	}
}

func (state *CycleActor) publishSensorUpdates() {
	for _, ev := range events.SnapshotToUpdateEvents(state.lastSnapshot) {
		state.eventStream.Publish(ev)
	}
}
