package domain

import (
	"strconv"

	"github.com/spockenergy/sma2spock/pkg/sma_modbus"
)

// OperationMode is what the EMS asked the battery to do.
type OperationMode uint8

const (
	OperationModeUnknown OperationMode = iota
	OperationModeAuto
	OperationModeCharge
	OperationModeDischarge
)

func (m OperationMode) String() string {
	switch m {
	case OperationModeAuto:
		return "auto"
	case OperationModeCharge:
		return "charge"
	case OperationModeDischarge:
		return "discharge"
	default:
		return "unknown"
	}
}

func OperationModeFromString(s string) OperationMode {
	switch s {
	case "auto":
		return OperationModeAuto
	case "charge":
		return OperationModeCharge
	case "discharge":
		return OperationModeDischarge
	default:
		return OperationModeUnknown
	}
}

type OperationCommand struct {
	Mode       OperationMode
	MagnitudeW uint32
}

func AutoCommand() OperationCommand {
	return OperationCommand{Mode: OperationModeAuto}
}

// TelemetrySnapshot is one plant reading on its way to the EMS. Absent
// readings survive until the payload is built.
type TelemetrySnapshot struct {
	PlantID           string
	BatterySoCPct     sma_modbus.Reading
	BatteryPowerW     sma_modbus.Reading
	PVPowerW          sma_modbus.Reading
	GridPowerW        sma_modbus.Reading
	BatteryCapacityWh sma_modbus.Reading
	GridExportWh      sma_modbus.Reading
	ChargeAllowed     bool
	DischargeAllowed  bool
}

// ZeroTelemetrySnapshot is the heartbeat sent when the devices cannot be
// read: all zeros, nothing allowed, so the EMS sees the plant but stops
// commanding it.
func ZeroTelemetrySnapshot(plantID string) *TelemetrySnapshot {
	return &TelemetrySnapshot{PlantID: plantID}
}

// PushFields flattens the snapshot into the wire payload. Every value is
// stringified; absent readings fall back to zero here and only here.
func (s *TelemetrySnapshot) PushFields() map[string]string {
	return map[string]string{
		"plant_id":                 s.PlantID,
		"bat_soc":                  strconv.FormatInt(s.BatterySoCPct.Or(0), 10),
		"bat_power":                strconv.FormatInt(s.BatteryPowerW.Or(0), 10),
		"pv_power":                 strconv.FormatInt(s.PVPowerW.Or(0), 10),
		"ongrid_power":             strconv.FormatInt(s.GridPowerW.Or(0), 10),
		"bat_capacity":             strconv.FormatInt(s.BatteryCapacityWh.Or(0), 10),
		"total_grid_output_energy": strconv.FormatInt(s.GridExportWh.Or(0), 10),
		"bat_charge_allowed":       strconv.FormatBool(s.ChargeAllowed),
		"bat_discharge_allowed":    strconv.FormatBool(s.DischargeAllowed),
	}
}
