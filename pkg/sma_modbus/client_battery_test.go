package sma_modbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBatteryClient(bus RegisterBus) *BatteryModbusClient {
	return &BatteryModbusClient{
		bus:        bus,
		logger:     zap.NewNop(),
		candidates: DefaultCandidates(),
		byteOrder:  ByteOrderBig,
		wordOrder:  WordOrderBig,
	}
}

func u32Pair(first, second uint32) []uint16 {
	regs := EncodeUint32(first, ByteOrderBig, WordOrderBig)
	return append(regs, EncodeUint32(second, ByteOrderBig, WordOrderBig)...)
}

func stubBatteryBlock(bus *fakeBus, currentA int32, socPct, capacityWh uint32) {
	regs := EncodeInt32(currentA, ByteOrderBig, WordOrderBig)
	regs = append(regs, u32Pair(socPct, capacityWh)...)
	bus.stub(RegisterKindHolding, RegBatteryBlock, regs)
}

func stubHealthyDevice(bus *fakeBus) {
	stubBatteryBlock(bus, -16, 55, 10240)
	bus.stub(RegisterKindHolding, RegBatteryChargePower, u32Pair(0, 820))
	bus.stub(RegisterKindHolding, RegGridPowerBlock, u32Pair(150, 0))
	bus.stub(RegisterKindHolding, RegGridExportEnergy, EncodeUint32(4471020, ByteOrderBig, WordOrderBig))
}

func TestBatteryReadTelemetry(t *testing.T) {
	bus := newFakeBus()
	stubHealthyDevice(bus)

	tel, err := newTestBatteryClient(bus).ReadTelemetry()
	require.NoError(t, err)

	assert.Equal(t, ReadingOf(55), tel.StateOfChargePct)
	assert.Equal(t, ReadingOf(10240), tel.CapacityWh)
	assert.Equal(t, ReadingOf(-820), tel.BatteryPowerW)
	assert.Equal(t, ReadingOf(150), tel.GridPowerW)
	assert.Equal(t, ReadingOf(4471020), tel.GridExportWh)
	assert.True(t, tel.ChargeAllowed)
	assert.True(t, tel.DischargeAllowed)
}

func TestBatteryReadTelemetrySoCFallback(t *testing.T) {
	cases := []struct {
		name   string
		socRaw uint32
	}{
		{"sentinel", 0xFFFFFFFF},
		{"out of range", 250},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bus := newFakeBus()
			stubHealthyDevice(bus)
			stubBatteryBlock(bus, -16, c.socRaw, 10240)
			bus.stub(RegisterKindHolding, RegBatterySoCFallback, []uint16{76})

			tel, err := newTestBatteryClient(bus).ReadTelemetry()
			require.NoError(t, err)
			assert.Equal(t, ReadingOf(76), tel.StateOfChargePct)
		})
	}
}

func TestBatteryReadTelemetrySoCAbsentWhenFallbackUnusable(t *testing.T) {
	bus := newFakeBus()
	stubHealthyDevice(bus)
	stubBatteryBlock(bus, -16, 0xFFFFFFFF, 10240)
	bus.stub(RegisterKindHolding, RegBatterySoCFallback, []uint16{0xFFFE}) // 65534 %

	tel, err := newTestBatteryClient(bus).ReadTelemetry()
	require.NoError(t, err)
	assert.Equal(t, AbsentReading(), tel.StateOfChargePct)
	assert.Equal(t, ReadingOf(10240), tel.CapacityWh)
}

func TestBatteryReadTelemetryFailsWhenMandatoryBlockMissing(t *testing.T) {
	bus := newFakeBus()
	stubHealthyDevice(bus)
	delete(bus.reads, busKey(RegisterKindHolding, RegGridPowerBlock))

	_, err := newTestBatteryClient(bus).ReadTelemetry()
	require.Error(t, err)

	var notFound *RegisterNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestBatteryPowerAbsentWhenBothSidesAbsent(t *testing.T) {
	bus := newFakeBus()
	stubHealthyDevice(bus)
	bus.stub(RegisterKindHolding, RegBatteryChargePower,
		[]uint16{0xFFFF, 0xFFFF, 0x8000, 0x0000})

	tel, err := newTestBatteryClient(bus).ReadTelemetry()
	require.NoError(t, err)
	assert.Equal(t, AbsentReading(), tel.BatteryPowerW)
}

func TestSetChargeWatts(t *testing.T) {
	bus := newFakeBus()
	client := newTestBatteryClient(bus)

	require.NoError(t, client.SetChargeWatts(500))

	require.Len(t, bus.writes, 2)
	assert.Equal(t, uint16(RegBatteryControlMode), bus.writes[0].addr)
	assert.Equal(t, EncodeUint32(ControlModeManual, ByteOrderBig, WordOrderBig), bus.writes[0].values)
	assert.Equal(t, uint16(RegBatterySetpoint), bus.writes[1].addr)
	assert.Equal(t, EncodeInt32(-500, ByteOrderBig, WordOrderBig), bus.writes[1].values)
}

func TestSetDischargeWatts(t *testing.T) {
	bus := newFakeBus()
	client := newTestBatteryClient(bus)

	require.NoError(t, client.SetDischargeWatts(500))

	require.Len(t, bus.writes, 2)
	assert.Equal(t, uint16(RegBatteryControlMode), bus.writes[0].addr)
	assert.Equal(t, uint16(RegBatterySetpoint), bus.writes[1].addr)
	assert.Equal(t, EncodeInt32(500, ByteOrderBig, WordOrderBig), bus.writes[1].values)
}

func TestSetAutoModeClearsSetpointFirst(t *testing.T) {
	bus := newFakeBus()
	client := newTestBatteryClient(bus)

	require.NoError(t, client.SetAutoMode())

	require.Len(t, bus.writes, 2)
	assert.Equal(t, uint16(RegBatterySetpoint), bus.writes[0].addr)
	assert.Equal(t, EncodeInt32(0, ByteOrderBig, WordOrderBig), bus.writes[0].values)
	assert.Equal(t, uint16(RegBatteryControlMode), bus.writes[1].addr)
	assert.Equal(t, EncodeUint32(ControlModeAuto, ByteOrderBig, WordOrderBig), bus.writes[1].values)
}

func TestFailedWriteDoesNotAbortSequence(t *testing.T) {
	bus := newFakeBus()
	bus.writeErrs[RegBatteryControlMode] = errors.New("illegal data address")
	client := newTestBatteryClient(bus)

	err := client.SetChargeWatts(1000)
	require.Error(t, err)

	// the setpoint write still happened after the mode write failed
	require.Len(t, bus.writes, 2)
	assert.Equal(t, uint16(RegBatterySetpoint), bus.writes[1].addr)
}
