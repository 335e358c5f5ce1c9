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

	adactor "powerplan2mqtt/internal/adapter/actor"
	"powerplan2mqtt/internal/adapter/device"
	"powerplan2mqtt/internal/adapter/provider"
	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/core/actor"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/service"
	"powerplan2mqtt/internal/server"
	"powerplan2mqtt/internal/util/actorutil"
	"powerplan2mqtt/pkg/sunspec_storage"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
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

	// planning services
	planStore := service.NewPlanStore()
	pass, err := planningPass(cfg, logger)
	if err != nil {
		panic(err)
	}
	evCalc := service.NewEVShareCalculator(evChargerModel(cfg), cfg.EV.CheapFraction, logger)
	evCharger := device.NewSimEVCharger(cfg.EV.MaxCurrentA)

	// init Storage actor provider
	storageProv, err := storageActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, planStore, pass, evCalc, evCharger, storageProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid, planStore)
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

	// alias PORT => POWERPLAN_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("POWERPLAN_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("powerplan")
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
	if cfg.Planner.IntervalMinutes == 0 || 60%cfg.Planner.IntervalMinutes != 0 {
		return nil, errors.New("config param planner.interval_minutes must divide an hour")
	}
	if cfg.Planner.HorizonHours < 1 {
		return nil, errors.New("config param planner.horizon_hours should be >= 1")
	}
	if cfg.Planner.SolverBlockMinutes > 0 && cfg.Planner.SolverBlockMinutes%cfg.Planner.IntervalMinutes != 0 {
		return nil, errors.New("config param planner.solver_block_minutes must be a multiple of planner.interval_minutes")
	}
	if cfg.Battery.CapacityWh <= 0 {
		return nil, errors.New("config param battery.capacity_wh should be > 0")
	}
	if cfg.Battery.Efficiency <= 0 || cfg.Battery.Efficiency > 1 {
		return nil, errors.New("config param battery.efficiency should be in (0, 1]")
	}
	if cfg.Battery.BackupReserve < 0 || cfg.Battery.BackupReserve > 1 {
		return nil, errors.New("config param battery.backup_reserve should be in [0, 1]")
	}
	if cfg.Telemetry.PollIntervalMillis > 0 && cfg.Telemetry.PollIntervalMillis < 1000 {
		return nil, errors.New("config param telemetry.poll_interval_millis should be >= 1000")
	}
	if cfg.EV.Enabled {
		if _, ok := domain.ParseEVMode(cfg.EV.Mode); !ok {
			return nil, errors.New("config param ev.mode is not a valid mode")
		}
		if cfg.EV.Voltage <= 0 || cfg.EV.Phases == 0 {
			return nil, errors.New("config params ev.voltage and ev.phases should be > 0")
		}
		if cfg.EV.MinCurrentA <= 0 || cfg.EV.MaxCurrentA < cfg.EV.MinCurrentA {
			return nil, errors.New("config param ev.max_current_a should be >= ev.min_current_a > 0")
		}
	}

	return &cfg, nil
}

func planningPass(cfg *config.Config, logger *zap.Logger) (*service.PlanningPass, error) {

	prices, err := provider.NewTariffPriceProvider(cfg.Tariff)
	if err != nil {
		return nil, err
	}
	solar := provider.NewClearSkySolarProvider(cfg.Solar)
	load := provider.NewProfileLoadEstimator(cfg.Load)

	aggregator := service.NewForecastAggregator(prices, solar, load, logger)

	blockFactor := 1
	if cfg.Planner.SolverBlockMinutes > cfg.Planner.IntervalMinutes {
		blockFactor = int(cfg.Planner.SolverBlockMinutes / cfg.Planner.IntervalMinutes)
	}
	solver := service.NewLPSolver(blockFactor, logger)
	fallback := service.NewGreedyPlanner(logger)

	objective := domain.ParseObjective(cfg.Planner.Objective)

	passCfg := service.PassConfig{
		Interval:  time.Duration(cfg.Planner.IntervalMinutes) * time.Minute,
		Horizon:   time.Duration(cfg.Planner.HorizonHours) * time.Hour,
		Objective: objective,
		Bands: service.ActionBands{
			PowerThresholdKW:    cfg.Actions.PowerThresholdW / 1000,
			CheapImportPrice:    cfg.Actions.CheapImportPrice,
			ValuableExportPrice: cfg.Actions.ValuableExportPrice,
		},
		MaxImportKW: cfg.Grid.MaxImportPower / 1000,
		MaxExportKW: cfg.Grid.MaxExportPower / 1000,
		BatteryDefaults: domain.BatteryModel{
			CapacityKWh:    cfg.Battery.CapacityWh / 1000,
			MaxChargeKW:    cfg.Battery.MaxChargeW / 1000,
			MaxDischargeKW: cfg.Battery.MaxDischargeW / 1000,
			Efficiency:     cfg.Battery.Efficiency,
			BackupReserve:  cfg.Battery.BackupReserve,
			SoC:            cfg.Battery.InitialSoC,
		},
		TelemetryMaxAge: time.Duration(cfg.Telemetry.MaxAgeMillis) * time.Millisecond,
	}

	return service.NewPlanningPass(passCfg, aggregator, solver, fallback, logger), nil
}

func evChargerModel(cfg *config.Config) domain.EVChargerModel {
	return domain.EVChargerModel{
		GridCapacityW: cfg.EV.GridCapacityW,
		Voltage:       cfg.EV.Voltage,
		Phases:        int(cfg.EV.Phases),
		MinCurrentA:   cfg.EV.MinCurrentA,
		MaxCurrentA:   cfg.EV.MaxCurrentA,
	}
}

func storageActorProvider(cfg *config.Config, logger *zap.Logger) (actor.StorageActorProvider, error) {

	var client sunspec_storage.StorageController
	if cfg.Storage.Disabled {
		client = sunspec_storage.CreateTestStorageClient()
	} else {
		var err error
		client, err = sunspec_storage.NewModbusStorageClient(cfg.Storage.Host, cfg.Storage.Port,
			cfg.Storage.UnitId, 1*time.Second)
		if err != nil {
			return nil, err
		}
	}

	dev := device.NewStorageDeviceAdapter(client,
		time.Duration(cfg.Storage.ReadDelayAfterChangeMillis)*time.Millisecond, logger)

	return func() *adactor.StorageActor {
		return adactor.NewStorageActor(dev, 2*time.Second, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(_ *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "powerplan")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("planner.horizon_hours", 48)
	viper.SetDefault("planner.interval_minutes", 5)
	viper.SetDefault("planner.solver_block_minutes", 30)
	viper.SetDefault("planner.objective", "cost")
	viper.SetDefault("planner.replan_interval_minutes", 30)
	viper.SetDefault("planner.soc_drift_threshold", 0.05)
	viper.SetDefault("planner.pass_timeout_millis", 30000)
	viper.SetDefault("battery.efficiency", 0.92)
	viper.SetDefault("battery.backup_reserve", 0.20)
	viper.SetDefault("battery.initial_soc", 0.50)
	viper.SetDefault("battery.use_device_limits", true)
	viper.SetDefault("actions.power_threshold_w", 100)
	viper.SetDefault("ev.enabled", false)
	viper.SetDefault("ev.mode", "off")
	viper.SetDefault("ev.voltage", 230)
	viper.SetDefault("ev.phases", 1)
	viper.SetDefault("ev.min_current_a", 6)
	viper.SetDefault("ev.max_current_a", 32)
	viper.SetDefault("ev.cheap_fraction", 0.3)
	viper.SetDefault("solar.clearness", 0.7)
	viper.SetDefault("telemetry.poll_interval_millis", 5000)
	viper.SetDefault("telemetry.max_age_millis", 60000)
	viper.SetDefault("storage_modbus_tcp.read_delay_after_change_millis", 1000)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
