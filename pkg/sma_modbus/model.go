package sma_modbus

import "fmt"

// Logical SMA register numbers (STP Smart Energy profile). The resolver
// turns these into wire addresses at read time.
const (
	// Battery block: s32 battery current (skipped), u32 state of charge %,
	// u32 rated capacity Wh.
	RegBatteryBlock        = 30843
	RegBatteryBlockLen     = 6
	RegBatterySoCFallback  = 31003 // u16 SoC served by legacy firmware
	RegBatteryChargePower  = 31393 // u32 W, followed by discharge power
	RegBatteryPowerLen     = 4
	RegGridPowerBlock      = 30865 // u32 W absorbed from grid, u32 W supplied
	RegGridPowerLen        = 4
	RegGridExportEnergy    = 30583 // u32 Wh cumulative feed-in counter
	RegGridExportEnergyLen = 2

	// PV inverter DC side, one s32 power value per string.
	RegPVStringAPower = 30773
	RegPVStringBPower = 30961
	RegPVPowerLen     = 2

	// Battery operation control, written raw as holding registers.
	RegBatterySetpoint    = 40149 // s32 W, negative charges, positive discharges
	RegBatteryControlMode = 40151 // u32

	ControlModeManual = 802
	ControlModeAuto   = 803
)

// Reading is a decoded register value that may be absent. Absent readings
// stay absent through derivation; only the payload builder substitutes
// defaults.
type Reading struct {
	Value int64
	Valid bool
}

func ReadingOf(value int64) Reading {
	return Reading{Value: value, Valid: true}
}

func AbsentReading() Reading {
	return Reading{}
}

// Or returns the value, or fallback when the reading is absent.
func (r Reading) Or(fallback int64) int64 {
	if !r.Valid {
		return fallback
	}
	return r.Value
}

func (r Reading) String() string {
	if !r.Valid {
		return "absent"
	}
	return fmt.Sprintf("%d", r.Value)
}

// BatteryTelemetry is one mandatory snapshot from the battery inverter.
// Battery power is charge minus discharge, so positive means the battery is
// charging. Grid power is absorbed minus supplied, so positive means import.
type BatteryTelemetry struct {
	StateOfChargePct Reading
	CapacityWh       Reading
	BatteryPowerW    Reading
	GridPowerW       Reading
	GridExportWh     Reading
	ChargeAllowed    bool
	DischargeAllowed bool
}

// PVTelemetry is the optional PV inverter contribution, all strings summed.
type PVTelemetry struct {
	PowerW Reading
}

type BatteryReader interface {
	Open() error
	Close() error
	ReadTelemetry() (*BatteryTelemetry, error)
}

type BatteryController interface {
	SetAutoMode() error
	SetChargeWatts(watts uint32) error
	SetDischargeWatts(watts uint32) error
}

// BatteryDevice is the full battery inverter surface the bridge needs.
type BatteryDevice interface {
	BatteryReader
	BatteryController
}

type PVReader interface {
	Open() error
	Close() error
	ReadTelemetry() (*PVTelemetry, error)
}
