package util

import (
	"github.com/spockenergy/sma2spock/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Spock: config.SpockConfig{
			Endpoint: "http://localhost:18080/push",
			APIToken: "test-token",
			PlantID:  "plant-1",
		},
		BatteryModbus: config.ModbusTCPConfig{
			Host:   "-.-.-.-",
			Port:   502,
			UnitID: 3,
		},
		PVModbus: config.ModbusTCPConfig{
			Host:   "-.-.-.-",
			Port:   502,
			UnitID: 3,
		},
		Poll: config.PollConfig{
			IntervalSeconds: 30,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "sma2spock",
		},
		Port: 8080,
	}
}
