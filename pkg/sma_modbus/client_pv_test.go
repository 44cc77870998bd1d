package sma_modbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPVClient(bus RegisterBus) *PVModbusClient {
	return &PVModbusClient{
		bus:        bus,
		logger:     zap.NewNop(),
		candidates: DefaultCandidates(),
		byteOrder:  ByteOrderBig,
		wordOrder:  WordOrderBig,
		strings:    []uint32{RegPVStringAPower, RegPVStringBPower},
	}
}

func TestPVReadTelemetrySumsStrings(t *testing.T) {
	bus := newFakeBus()
	bus.stub(RegisterKindHolding, RegPVStringAPower, EncodeInt32(1200, ByteOrderBig, WordOrderBig))
	bus.stub(RegisterKindHolding, RegPVStringBPower, EncodeInt32(1920, ByteOrderBig, WordOrderBig))

	tel, err := newTestPVClient(bus).ReadTelemetry()
	require.NoError(t, err)
	assert.Equal(t, ReadingOf(3120), tel.PowerW)
}

func TestPVReadTelemetrySkipsUnmappedString(t *testing.T) {
	bus := newFakeBus()
	bus.stub(RegisterKindHolding, RegPVStringAPower, EncodeInt32(1200, ByteOrderBig, WordOrderBig))

	tel, err := newTestPVClient(bus).ReadTelemetry()
	require.NoError(t, err)
	assert.Equal(t, ReadingOf(1200), tel.PowerW)
}

func TestPVReadTelemetryFailsWhenNoStringResolves(t *testing.T) {
	bus := newFakeBus()

	_, err := newTestPVClient(bus).ReadTelemetry()
	require.Error(t, err)

	var notFound *RegisterNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestPVReadTelemetryAbsentWhenNightSentinels(t *testing.T) {
	bus := newFakeBus()
	// inverter asleep, both strings report not-available
	bus.stub(RegisterKindHolding, RegPVStringAPower, []uint16{0xFFFF, 0xFFFF})
	bus.stub(RegisterKindHolding, RegPVStringBPower, []uint16{0x8000, 0x0000})

	tel, err := newTestPVClient(bus).ReadTelemetry()
	require.NoError(t, err)
	assert.Equal(t, AbsentReading(), tel.PowerW)
}
