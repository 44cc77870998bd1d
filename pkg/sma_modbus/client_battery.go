package sma_modbus

import (
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
)

// BatteryModbusClient reads telemetry from and writes operation commands to
// an SMA battery inverter over Modbus TCP.
type BatteryModbusClient struct {
	ModbusClient

	bus        RegisterBus
	logger     *zap.Logger
	candidates []AddressCandidate
	byteOrder  ByteOrder
	wordOrder  WordOrder
}

func NewBatteryModbusClient(host string, port uint, unitID uint8, timeout time.Duration,
	logger *zap.Logger, instrument []ModbusInstrument) (*BatteryModbusClient, error) {
	client, err := newModbusClient(host, port, unitID, timeout, instrument)
	if err != nil {
		return nil, err
	}
	return &BatteryModbusClient{
		ModbusClient: client,
		bus:          client,
		logger:       logger,
		candidates:   DefaultCandidates(),
		byteOrder:    ByteOrderBig,
		wordOrder:    WordOrderBig,
	}, nil
}

// ReadTelemetry collects one battery snapshot. Any failed sub-read fails the
// whole snapshot; absent registers stay absent in the result.
func (c *BatteryModbusClient) ReadTelemetry() (*BatteryTelemetry, error) {
	soc, capacity, err := c.readBatteryBlock()
	if err != nil {
		return nil, err
	}
	batteryPower, err := c.readBatteryPower()
	if err != nil {
		return nil, err
	}
	gridPower, err := c.readGridPower()
	if err != nil {
		return nil, err
	}
	exported, err := c.readGridExportEnergy()
	if err != nil {
		return nil, err
	}

	return &BatteryTelemetry{
		StateOfChargePct: soc,
		CapacityWh:       capacity,
		BatteryPowerW:    batteryPower,
		GridPowerW:       gridPower,
		GridExportWh:     exported,
		ChargeAllowed:    true,
		DischargeAllowed: true,
	}, nil
}

func (c *BatteryModbusClient) readBatteryBlock() (soc Reading, capacity Reading, err error) {
	regs, err := ResolveRead(c.bus, RegBatteryBlock, RegBatteryBlockLen, c.candidates)
	if err != nil {
		return AbsentReading(), AbsentReading(), err
	}
	dec := NewDecoder(regs, c.byteOrder, c.wordOrder)
	dec.Skip(4) // battery current, not reported
	socRaw, err := dec.Uint32()
	if err != nil {
		return AbsentReading(), AbsentReading(), err
	}
	capRaw, err := dec.Uint32()
	if err != nil {
		return AbsentReading(), AbsentReading(), err
	}

	if v, ok := NormalizeUint32(capRaw); ok {
		capacity = ReadingOf(int64(v))
	}
	if v, ok := NormalizeUint32(socRaw); ok && v <= 100 {
		return ReadingOf(int64(v)), capacity, nil
	}
	return c.readSoCFallback(), capacity, nil
}

// readSoCFallback consults the 16-bit state of charge register served by
// older firmware. Its own failure leaves SoC absent instead of failing the
// snapshot.
func (c *BatteryModbusClient) readSoCFallback() Reading {
	regs, err := ResolveRead(c.bus, RegBatterySoCFallback, 1, c.candidates)
	if err != nil {
		c.logger.Debug("state of charge fallback read failed", zap.Error(err))
		return AbsentReading()
	}
	dec := NewDecoder(regs, c.byteOrder, c.wordOrder)
	raw, err := dec.Uint16()
	if err != nil {
		return AbsentReading()
	}
	if v, ok := NormalizeUint16(raw); ok && v <= 100 {
		return ReadingOf(int64(v))
	}
	return AbsentReading()
}

func (c *BatteryModbusClient) readBatteryPower() (Reading, error) {
	charge, discharge, err := c.readUint32Pair(RegBatteryChargePower, RegBatteryPowerLen)
	if err != nil {
		return AbsentReading(), err
	}
	return diffReading(charge, discharge), nil
}

func (c *BatteryModbusClient) readGridPower() (Reading, error) {
	absorbed, supplied, err := c.readUint32Pair(RegGridPowerBlock, RegGridPowerLen)
	if err != nil {
		return AbsentReading(), err
	}
	return diffReading(absorbed, supplied), nil
}

func (c *BatteryModbusClient) readGridExportEnergy() (Reading, error) {
	regs, err := ResolveRead(c.bus, RegGridExportEnergy, RegGridExportEnergyLen, c.candidates)
	if err != nil {
		return AbsentReading(), err
	}
	dec := NewDecoder(regs, c.byteOrder, c.wordOrder)
	raw, err := dec.Uint32()
	if err != nil {
		return AbsentReading(), err
	}
	if v, ok := NormalizeUint32(raw); ok {
		return ReadingOf(int64(v)), nil
	}
	return AbsentReading(), nil
}

func (c *BatteryModbusClient) readUint32Pair(logical uint32, quantity uint16) (Reading, Reading, error) {
	regs, err := ResolveRead(c.bus, logical, quantity, c.candidates)
	if err != nil {
		return AbsentReading(), AbsentReading(), err
	}
	dec := NewDecoder(regs, c.byteOrder, c.wordOrder)
	firstRaw, err := dec.Uint32()
	if err != nil {
		return AbsentReading(), AbsentReading(), err
	}
	secondRaw, err := dec.Uint32()
	if err != nil {
		return AbsentReading(), AbsentReading(), err
	}
	var first, second Reading
	if v, ok := NormalizeUint32(firstRaw); ok {
		first = ReadingOf(int64(v))
	}
	if v, ok := NormalizeUint32(secondRaw); ok {
		second = ReadingOf(int64(v))
	}
	return first, second, nil
}

// diffReading derives first − second. The result is absent only when both
// inputs are absent.
func diffReading(first, second Reading) Reading {
	if !first.Valid && !second.Valid {
		return AbsentReading()
	}
	return ReadingOf(first.Or(0) - second.Or(0))
}

// SetAutoMode hands battery management back to the inverter: setpoint to
// zero first so no stale external target survives, then internal mode.
func (c *BatteryModbusClient) SetAutoMode() error {
	var errs []error
	errs = append(errs, c.writeChecked(RegBatterySetpoint, EncodeInt32(0, c.byteOrder, c.wordOrder)))
	errs = append(errs, c.writeChecked(RegBatteryControlMode, EncodeUint32(ControlModeAuto, c.byteOrder, c.wordOrder)))
	return errors.Join(errs...)
}

// SetChargeWatts forces charging at the given power. Manual mode must be
// active before the setpoint is accepted; the register takes a negative
// value for charge.
func (c *BatteryModbusClient) SetChargeWatts(watts uint32) error {
	var errs []error
	errs = append(errs, c.writeChecked(RegBatteryControlMode, EncodeUint32(ControlModeManual, c.byteOrder, c.wordOrder)))
	errs = append(errs, c.writeChecked(RegBatterySetpoint, EncodeInt32(-clampWatts(watts), c.byteOrder, c.wordOrder)))
	return errors.Join(errs...)
}

// SetDischargeWatts forces discharging at the given power, written as a
// positive setpoint.
func (c *BatteryModbusClient) SetDischargeWatts(watts uint32) error {
	var errs []error
	errs = append(errs, c.writeChecked(RegBatteryControlMode, EncodeUint32(ControlModeManual, c.byteOrder, c.wordOrder)))
	errs = append(errs, c.writeChecked(RegBatterySetpoint, EncodeInt32(clampWatts(watts), c.byteOrder, c.wordOrder)))
	return errors.Join(errs...)
}

// writeChecked performs one acknowledged control write. Failures are logged
// with address and payload and reported back, but the caller keeps going so
// a failed mode write does not leave a stale setpoint unwritten.
func (c *BatteryModbusClient) writeChecked(logical uint32, values []uint16) error {
	err := c.bus.WriteRegisters(uint16(logical), values)
	if err != nil {
		c.logger.Error("control register write failed",
			zap.Uint32("register", logical),
			zap.Uint16s("values", values),
			zap.Error(err))
	}
	return err
}

func clampWatts(watts uint32) int32 {
	if watts > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(watts)
}
