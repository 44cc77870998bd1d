package actor

import (
	"testing"
	"time"

	"github.com/spockenergy/sma2spock/internal/core/domain"
	"github.com/spockenergy/sma2spock/internal/core/service"
	"github.com/spockenergy/sma2spock/internal/util/actorutil"
	"github.com/spockenergy/sma2spock/pkg/sma_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func spawnTestModbusActor(t *testing.T, battery *sma_modbus.TestBatteryDevice, pv sma_modbus.PVReader) (*actor.ActorSystem, *actor.PID) {
	t.Helper()

	logger := zap.NewNop()
	as := actorutil.NewActorSystemWithZapLogger(logger)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewModbusActor(battery, pv, &service.DefaultCommandPolicy{Logger: logger}, "plant-1", logger)
	})
	pid := as.Root.Spawn(props)
	return as, pid
}

func TestReadTelemetryModbusActor(t *testing.T) {

	assert := assert.New(t)

	battery := sma_modbus.CreateTestBatteryDevice()
	as, pid := spawnTestModbusActor(t, battery, sma_modbus.CreateTestPVReader())
	defer as.Shutdown()

	result, err := as.Root.RequestFuture(pid, domain.ReadTelemetryRequest{}, 15*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ReadTelemetryResponse)
	require.True(t, ok)
	require.False(t, resp.HasResponseError())
	require.NotNil(t, resp.Snapshot)

	assert.Equal("plant-1", resp.Snapshot.PlantID)
	assert.Equal(int64(67), resp.Snapshot.BatterySoCPct.Or(0), "battery SoC")
	assert.Equal(int64(-820), resp.Snapshot.BatteryPowerW.Or(0), "battery power")
	assert.Equal(int64(3120), resp.Snapshot.PVPowerW.Or(0), "pv power")
	assert.Equal(int64(150), resp.Snapshot.GridPowerW.Or(0), "grid power")
	assert.True(resp.Snapshot.ChargeAllowed)
	assert.True(resp.Snapshot.DischargeAllowed)

	as.Root.Stop(pid)
}

func TestReadTelemetryWithoutPVModbusActor(t *testing.T) {

	battery := sma_modbus.CreateTestBatteryDevice()
	as, pid := spawnTestModbusActor(t, battery, nil)
	defer as.Shutdown()

	result, err := as.Root.RequestFuture(pid, domain.ReadTelemetryRequest{}, 15*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ReadTelemetryResponse)
	require.True(t, ok)
	require.False(t, resp.HasResponseError())

	assert.False(t, resp.Snapshot.PVPowerW.Valid, "pv reading absent without a pv inverter")

	as.Root.Stop(pid)
}

func TestReadTelemetryErrorModbusActor(t *testing.T) {

	battery := sma_modbus.CreateTestBatteryDevice()
	battery.ReadError = assert.AnError
	as, pid := spawnTestModbusActor(t, battery, nil)
	defer as.Shutdown()

	result, err := as.Root.RequestFuture(pid, domain.ReadTelemetryRequest{}, 15*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ReadTelemetryResponse)
	require.True(t, ok)

	assert.True(t, resp.HasResponseError(), "battery read failure surfaces in the response")

	as.Root.Stop(pid)
}

func TestApplyOperationModbusActor(t *testing.T) {

	battery := sma_modbus.CreateTestBatteryDevice()
	as, pid := spawnTestModbusActor(t, battery, nil)
	defer as.Shutdown()

	result, err := as.Root.RequestFuture(pid, domain.ApplyOperationRequest{
		Command: domain.OperationCommand{Mode: domain.OperationModeCharge, MagnitudeW: 500},
	}, 15*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ApplyOperationResponse)
	require.True(t, ok)
	require.False(t, resp.HasResponseError())

	ops := battery.RecordedOps()
	require.Len(t, ops, 1)
	assert.Equal(t, sma_modbus.ControlOp{Op: "charge", Watts: 500}, ops[0])

	as.Root.Stop(pid)
}

func TestApplyOperationResolvesToAutoModbusActor(t *testing.T) {

	battery := sma_modbus.CreateTestBatteryDevice()
	as, pid := spawnTestModbusActor(t, battery, nil)
	defer as.Shutdown()

	// manual command without magnitude resolves to auto
	result, err := as.Root.RequestFuture(pid, domain.ApplyOperationRequest{
		Command: domain.OperationCommand{Mode: domain.OperationModeDischarge},
	}, 15*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ApplyOperationResponse)
	require.True(t, ok)
	require.False(t, resp.HasResponseError())

	ops := battery.RecordedOps()
	require.Len(t, ops, 1)
	assert.Equal(t, sma_modbus.ControlOp{Op: "auto", Watts: 0}, ops[0])

	as.Root.Stop(pid)
}
