package actor

import (
	"fmt"
	"time"

	"github.com/spockenergy/sma2spock/internal/core/domain"
	"github.com/spockenergy/sma2spock/internal/core/port"
	"github.com/spockenergy/sma2spock/internal/util/actorutil"
	"github.com/spockenergy/sma2spock/pkg/sma_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	MODBUS_ACTOR_ID = "modbus"

	modbusTaskTimeout = 10 * time.Second
)

// ModbusActor owns the device connections. Sockets are opened per request
// and closed before the response leaves, so a wedged inverter never holds
// the bridge hostage between cycles.
type ModbusActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	battery  sma_modbus.BatteryDevice
	pv       sma_modbus.PVReader
	policy   port.CommandPolicy
	plantID  string
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewModbusActor(battery sma_modbus.BatteryDevice, pv sma_modbus.PVReader,
	policy port.CommandPolicy, plantID string, logger *zap.Logger) *ModbusActor {
	act := &ModbusActor{
		battery:  battery,
		pv:       pv,
		policy:   policy,
		plantID:  plantID,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(MODBUS_ACTOR_ID, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *ModbusActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ModbusActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("modbus@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      MODBUS_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case domain.ReadTelemetryRequest:
		state.logger.Debug("modbus@default: ReadTelemetryRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.readTelemetry),
			mapTaskResult[domain.ReadTelemetryResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ReadTelemetryResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(modbusTaskTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.ApplyOperationRequest:
		state.logger.Debug("modbus@default: ApplyOperationRequest",
			zap.String("mode", msg.Command.Mode.String()),
			zap.Uint32("magnitude", msg.Command.MagnitudeW))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.ApplyOperationResponse {
			a := state.applyOperation(msg.Command)
			return &a
		}),
			mapTaskResult[domain.ApplyOperationResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ApplyOperationResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(modbusTaskTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	default:
		state.logger.Debug("modbus@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ModbusActor) WaitingModbus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("modbus@WaitingModbus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("modbus@WaitingModbus stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// readTelemetry assembles one snapshot. The battery inverter is mandatory;
// the PV inverter only contributes when it answers.
func (a *ModbusActor) readTelemetry() (*domain.ReadTelemetryResponse, error) {
	if err := a.battery.Open(); err != nil {
		return nil, err
	}
	defer a.battery.Close()

	bat, err := a.battery.ReadTelemetry()
	if err != nil {
		return nil, err
	}

	snapshot := &domain.TelemetrySnapshot{
		PlantID:           a.plantID,
		BatterySoCPct:     bat.StateOfChargePct,
		BatteryPowerW:     bat.BatteryPowerW,
		GridPowerW:        bat.GridPowerW,
		BatteryCapacityWh: bat.CapacityWh,
		GridExportWh:      bat.GridExportWh,
		ChargeAllowed:     bat.ChargeAllowed,
		DischargeAllowed:  bat.DischargeAllowed,
	}
	snapshot.PVPowerW = a.readPVPower()

	return &domain.ReadTelemetryResponse{Snapshot: snapshot}, nil
}

func (a *ModbusActor) readPVPower() sma_modbus.Reading {
	if a.pv == nil {
		return sma_modbus.AbsentReading()
	}
	if err := a.pv.Open(); err != nil {
		a.logger.Warn("pv inverter unreachable", zap.Error(err))
		return sma_modbus.AbsentReading()
	}
	defer a.pv.Close()

	pv, err := a.pv.ReadTelemetry()
	if err != nil {
		a.logger.Warn("pv telemetry read failed", zap.Error(err))
		return sma_modbus.AbsentReading()
	}
	return pv.PowerW
}

// applyOperation runs the resolved command against the battery inverter.
// A failed manual operation falls back to a best-effort auto write; the
// response reports the failure but the actor never dies over it.
func (a *ModbusActor) applyOperation(cmd domain.OperationCommand) domain.ApplyOperationResponse {
	resolved := a.policy.Resolve(cmd)

	if err := a.battery.Open(); err != nil {
		a.logger.Error("battery inverter unreachable, operation not applied", zap.Error(err))
		return domain.ApplyOperationResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
		}
	}
	defer a.battery.Close()

	var err error
	switch resolved.Mode {
	case domain.OperationModeCharge:
		err = a.battery.SetChargeWatts(resolved.MagnitudeW)
	case domain.OperationModeDischarge:
		err = a.battery.SetDischargeWatts(resolved.MagnitudeW)
	default:
		err = a.battery.SetAutoMode()
	}

	if err != nil && resolved.Mode != domain.OperationModeAuto {
		a.logger.Error("manual operation failed, reverting to auto",
			zap.String("mode", resolved.Mode.String()), zap.Error(err))
		if autoErr := a.battery.SetAutoMode(); autoErr != nil {
			a.logger.Error("auto fallback failed", zap.Error(autoErr))
		}
	}

	return domain.ApplyOperationResponse{
		ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
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
