package util

import (
	"powerplan2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host: "localhost",
			Port: 1883,
		},
		Planner: config.PlannerConfig{
			HorizonHours:          48,
			IntervalMinutes:       5,
			SolverBlockMinutes:    30,
			Objective:             "cost",
			ReplanIntervalMinutes: 5,
			SoCDriftThreshold:     0.05,
			PassTimeoutMillis:     30000,
		},
		Battery: config.BatteryConfig{
			CapacityWh:    13500,
			MaxChargeW:    5000,
			MaxDischargeW: 5000,
			Efficiency:    0.92,
			BackupReserve: 0.20,
			InitialSoC:    0.50,
		},
		Grid: config.GridConfig{
			MaxImportPower: 11000,
		},
		Actions: config.ActionConfig{
			PowerThresholdW: 100,
		},
		Tariff: config.TariffConfig{
			BaseImportPrice: 0.30,
			BaseExportPrice: 0.08,
		},
		Load: config.LoadConfig{
			BasePowerW: 500,
		},
		EV: config.EVConfig{
			Enabled:       true,
			Mode:          "smart",
			GridCapacityW: 7400,
			Voltage:       230,
			Phases:        1,
			MinCurrentA:   6,
			MaxCurrentA:   32,
			CheapFraction: 0.3,
		},
		Storage: config.StorageConfig{
			Host:     "-.-.-.-",
			Port:     502,
			UnitId:   1,
			Disabled: true,
		},
		Telemetry: config.TelemetryConfig{
			PollIntervalMillis: 5000,
			MaxAgeMillis:       60000,
		},
		Port: 8080,
	}
}
