package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "github.com/spockenergy/sma2spock/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	SENSOR_ID_BATTERY_SOC        = "bat_soc"
	SENSOR_ID_BATTERY_POWER      = "bat_power"
	SENSOR_ID_PV_POWER           = "pv_power"
	SENSOR_ID_GRID_POWER         = "ongrid_power"
	SENSOR_ID_BATTERY_CAPACITY   = "bat_capacity"
	SENSOR_ID_GRID_EXPORT_ENERGY = "total_grid_output_energy"
	SWITCH_ID_POLLING            = "polling"

	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_BATTERY         = "battery"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_ENERGY_STORAGE  = "energy_storage"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("sma2spock_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "Spock Energy",
		Model:        "sma2spock",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("sma2spock %s", md5HashShort(baseTopic)),
	}
}

func PlantDevice(plantID string) Device {
	return Device{
		Id:           fmt.Sprintf("sma_plant_%s", md5HashShort(plantID)),
		Manufacturer: "SMA",
		Model:        "Smart Energy plant",
		Name:         fmt.Sprintf("SMA plant %s", plantID),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

// PlantSensors mirrors the telemetry the bridge pushes to the EMS, so the
// same numbers can be watched locally.
func PlantSensors(plantDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Battery SoC
	sensors = append(sensors, GenericSensor{
		Device:            plantDevice,
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(plantDevice.Id, SENSOR_ID_BATTERY_SOC),
	})

	// Battery power (positive = charging)
	sensors = append(sensors, GenericSensor{
		Device:            plantDevice,
		Id:                SENSOR_ID_BATTERY_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(plantDevice.Id, SENSOR_ID_BATTERY_POWER),
	})

	// PV power
	sensors = append(sensors, GenericSensor{
		Device:            plantDevice,
		Id:                SENSOR_ID_PV_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "PV power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:solar-power",
		UniqueId:          uniqueId(plantDevice.Id, SENSOR_ID_PV_POWER),
	})

	// Grid power (positive = import)
	sensors = append(sensors, GenericSensor{
		Device:            plantDevice,
		Id:                SENSOR_ID_GRID_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Grid power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:transmission-tower",
		UniqueId:          uniqueId(plantDevice.Id, SENSOR_ID_GRID_POWER),
	})

	// Battery capacity
	sensors = append(sensors, GenericSensor{
		Device:            plantDevice,
		Id:                SENSOR_ID_BATTERY_CAPACITY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery capacity",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_ENERGY_STORAGE,
		UnitOfMeasurement: "Wh",
		UniqueId:          uniqueId(plantDevice.Id, SENSOR_ID_BATTERY_CAPACITY),
	})

	// Grid export energy counter
	sensors = append(sensors, GenericSensor{
		Device:            plantDevice,
		Id:                SENSOR_ID_GRID_EXPORT_ENERGY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Total grid output energy",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "Wh",
		UniqueId:          uniqueId(plantDevice.Id, SENSOR_ID_GRID_EXPORT_ENERGY),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func PollingSwitches(bridgeDevice Device) []GenericSwitch {

	var switches []GenericSwitch

	// EMS polling on/off
	switches = append(switches, GenericSwitch{
		Device:   bridgeDevice,
		Id:       SWITCH_ID_POLLING,
		Name:     "EMS polling",
		UniqueId: uniqueId(bridgeDevice.Id, SWITCH_ID_POLLING),
		Icon:     "mdi:sync",
	})

	return switches
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
