package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/spockenergy/sma2spock/internal/adapter/actor"
	"github.com/spockenergy/sma2spock/internal/config"
	"github.com/spockenergy/sma2spock/internal/core/actor"
	"github.com/spockenergy/sma2spock/internal/core/service"
	"github.com/spockenergy/sma2spock/internal/server"
	"github.com/spockenergy/sma2spock/internal/spock"
	"github.com/spockenergy/sma2spock/internal/util/actorutil"
	"github.com/spockenergy/sma2spock/pkg/sma_modbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// init Modbus actor provider
	modbusProv, err := modbusActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, modbusProv, spockActorProvider(cfg, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => SMA2SPOCK_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SMA2SPOCK_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("sma2spock")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.Spock.Endpoint == "" {
		return nil, errors.New("config param spock.endpoint is required")
	}
	if cfg.Spock.APIToken == "" {
		return nil, errors.New("config param spock.api_token is required")
	}
	if cfg.Spock.PlantID == "" {
		return nil, errors.New("config param spock.plant_id is required")
	}
	if !cfg.BatteryModbus.Enabled() {
		return nil, errors.New("config param battery_modbus.host is required")
	}
	if cfg.Poll.IntervalSeconds < 5 {
		return nil, errors.New("config param poll.interval_seconds should be >= 5")
	}

	return &cfg, nil
}

func modbusActorProvider(cfg *config.Config, logger *zap.Logger) (actor.ModbusActorProvider, error) {

	battery, err := sma_modbus.NewBatteryModbusClient(cfg.BatteryModbus.Host,
		cfg.BatteryModbus.Port, cfg.BatteryModbus.UnitID,
		time.Duration(cfg.BatteryModbus.TimeoutMillis)*time.Millisecond, logger, nil)

	if err != nil {
		return nil, err
	}

	// the PV inverter is optional
	var pv sma_modbus.PVReader
	if cfg.PVModbus.Enabled() {
		pvClient, err := sma_modbus.NewPVModbusClient(cfg.PVModbus.Host,
			cfg.PVModbus.Port, cfg.PVModbus.UnitID,
			time.Duration(cfg.PVModbus.TimeoutMillis)*time.Millisecond, logger, nil)

		if err != nil {
			return nil, err
		}
		pv = pvClient
	}

	policy := &service.DefaultCommandPolicy{Logger: logger}

	return func() *adactor.ModbusActor {
		return adactor.NewModbusActor(battery, pv, policy, cfg.Spock.PlantID, logger)
	}, nil
}

func spockActorProvider(cfg *config.Config, logger *zap.Logger) actor.SpockActorProvider {
	return func() *adactor.SpockActor {
		return adactor.NewSpockActor(spock.NewClient(cfg.Spock, logger), logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "sma2spock")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("battery_modbus.port", 502)
	viper.SetDefault("battery_modbus.unit_id", 3)
	viper.SetDefault("battery_modbus.timeout_millis", 5000)
	viper.SetDefault("pv_modbus.port", 502)
	viper.SetDefault("pv_modbus.unit_id", 3)
	viper.SetDefault("pv_modbus.timeout_millis", 5000)
	viper.SetDefault("poll.interval_seconds", 30)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.Spock.APIToken = "*redacted*"
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
