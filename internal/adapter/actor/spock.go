package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spockenergy/sma2spock/internal/core/domain"
	"github.com/spockenergy/sma2spock/internal/spock"
	"github.com/spockenergy/sma2spock/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	SPOCK_ACTOR_ID = "spock"

	// a bit above the HTTP client timeout so the transport error wins
	spockTaskTimeout = 15 * time.Second
)

// TelemetryPusher is the EMS side of the bridge as the actor sees it.
type TelemetryPusher interface {
	PushTelemetry(ctx context.Context, snapshot *domain.TelemetrySnapshot) (domain.OperationCommand, error)
}

// SpockActor serializes pushes to the EMS. One push at a time; requests
// arriving mid-push are stashed, not dropped.
type SpockActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	pusher   TelemetryPusher
	logger   *zap.Logger
}

func NewSpockActor(pusher TelemetryPusher, logger *zap.Logger) *SpockActor {
	act := &SpockActor{
		pusher:   pusher,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(SPOCK_ACTOR_ID, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *SpockActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SpockActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("spock@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      SPOCK_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case domain.PushTelemetryRequest:
		state.logger.Debug("spock@default: PushTelemetryRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.PushTelemetryResponse {
			r := state.push(msg.Snapshot)
			return &r
		}),
			mapTaskResult[domain.PushTelemetryResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.PushTelemetryResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(spockTaskTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingPush)
	default:
		state.logger.Debug("spock@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *SpockActor) WaitingPush(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("spock@WaitingPush backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("spock@WaitingPush stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *SpockActor) push(snapshot *domain.TelemetrySnapshot) domain.PushTelemetryResponse {
	taskCtx, cancel := context.WithTimeout(context.Background(), spockTaskTimeout)
	defer cancel()

	cmd, err := a.pusher.PushTelemetry(taskCtx, snapshot)
	if err != nil {
		invalidToken := errors.Is(err, spock.ErrInvalidToken)
		if invalidToken {
			a.logger.Error("EMS rejected api token, check configuration")
		} else {
			a.logger.Warn("telemetry push failed", zap.Error(err))
		}
		return domain.PushTelemetryResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			InvalidToken:       invalidToken,
		}
	}
	return domain.PushTelemetryResponse{Command: cmd}
}
