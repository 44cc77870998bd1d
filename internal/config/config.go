package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel      zapcore.Level
	Spock         SpockConfig     `mapstructure:"spock"`
	BatteryModbus ModbusTCPConfig `mapstructure:"battery_modbus"`
	PVModbus      ModbusTCPConfig `mapstructure:"pv_modbus"`
	Poll          PollConfig      `mapstructure:"poll"`
	MQTT          MQTTConfig      `mapstructure:"mqtt"`

	Port    uint `mapstructure:"port"`
	HttpLog bool `mapstructure:"http_log"`
}

type SpockConfig struct {
	Endpoint string
	APIToken string `mapstructure:"api_token"`
	PlantID  string `mapstructure:"plant_id"`
}

type ModbusTCPConfig struct {
	Host          string
	Port          uint
	UnitID        uint8  `mapstructure:"unit_id"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

// Enabled reports whether a device connection is configured at all. The PV
// inverter is optional; the battery inverter is not.
func (c ModbusTCPConfig) Enabled() bool {
	return c.Host != ""
}

type PollConfig struct {
	IntervalSeconds uint32 `mapstructure:"interval_seconds"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
