package sma_modbus

import (
	"time"

	"go.uber.org/zap"
)

// PVModbusClient reads DC power from a separate SMA PV inverter. A plant
// without one simply runs the bridge with the PV client disabled.
type PVModbusClient struct {
	ModbusClient

	bus        RegisterBus
	logger     *zap.Logger
	candidates []AddressCandidate
	byteOrder  ByteOrder
	wordOrder  WordOrder
	strings    []uint32
}

func NewPVModbusClient(host string, port uint, unitID uint8, timeout time.Duration,
	logger *zap.Logger, instrument []ModbusInstrument) (*PVModbusClient, error) {
	client, err := newModbusClient(host, port, unitID, timeout, instrument)
	if err != nil {
		return nil, err
	}
	return &PVModbusClient{
		ModbusClient: client,
		bus:          client,
		logger:       logger,
		candidates:   DefaultCandidates(),
		byteOrder:    ByteOrderBig,
		wordOrder:    WordOrderBig,
		strings:      []uint32{RegPVStringAPower, RegPVStringBPower},
	}, nil
}

// ReadTelemetry sums the DC power of all strings the inverter serves. A
// string the firmware does not map is skipped; the read fails only when no
// string resolves at all.
func (c *PVModbusClient) ReadTelemetry() (*PVTelemetry, error) {
	total := AbsentReading()
	resolved := false
	var lastErr error
	for _, reg := range c.strings {
		regs, err := ResolveRead(c.bus, reg, RegPVPowerLen, c.candidates)
		if err != nil {
			c.logger.Debug("pv string read failed", zap.Uint32("register", reg), zap.Error(err))
			lastErr = err
			continue
		}
		resolved = true
		dec := NewDecoder(regs, c.byteOrder, c.wordOrder)
		raw, err := dec.Int32()
		if err != nil {
			return nil, err
		}
		if v, ok := NormalizeInt32(raw); ok {
			total = ReadingOf(total.Or(0) + int64(v))
		}
	}
	if !resolved && lastErr != nil {
		return nil, lastErr
	}
	return &PVTelemetry{PowerW: total}, nil
}
