package events

import (
	. "github.com/spockenergy/sma2spock/internal/core/domain"
)

// SnapshotToUpdateEvents turns one pushed snapshot into local sensor
// updates, using the same defaults the push payload uses.
func SnapshotToUpdateEvents(s *TelemetrySnapshot) []any {
	var events []any

	// Battery SoC
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_SOC,
		},
		Value: float64(s.BatterySoCPct.Or(0)),
	})
	// Battery power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_POWER,
		},
		Value: float64(s.BatteryPowerW.Or(0)),
	})
	// PV power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_PV_POWER,
		},
		Value: float64(s.PVPowerW.Or(0)),
	})
	// Grid power
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_GRID_POWER,
		},
		Value: float64(s.GridPowerW.Or(0)),
	})
	// Battery capacity
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BATTERY_CAPACITY,
		},
		Value: float64(s.BatteryCapacityWh.Or(0)),
	})
	// Grid export energy
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_GRID_EXPORT_ENERGY,
		},
		Value: float64(s.GridExportWh.Or(0)),
	})

	return events
}

func PollingSwitchUpdateEvent(enabled bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_POLLING,
		},
		Value: enabled,
	}
}
