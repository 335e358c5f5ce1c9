package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig `mapstructure:"mqtt"`

	Planner   PlannerConfig   `mapstructure:"planner"`
	Battery   BatteryConfig   `mapstructure:"battery"`
	Grid      GridConfig      `mapstructure:"grid"`
	Actions   ActionConfig    `mapstructure:"actions"`
	Tariff    TariffConfig    `mapstructure:"tariff"`
	Solar     SolarConfig     `mapstructure:"solar"`
	Load      LoadConfig      `mapstructure:"load"`
	EV        EVConfig        `mapstructure:"ev"`
	Storage   StorageConfig   `mapstructure:"storage_modbus_tcp"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Port      uint            `mapstructure:"port"`
	HttpLog   bool            `mapstructure:"http_log"`
}

type PlannerConfig struct {
	HorizonHours          uint32  `mapstructure:"horizon_hours"`
	IntervalMinutes       uint32  `mapstructure:"interval_minutes"`
	SolverBlockMinutes    uint32  `mapstructure:"solver_block_minutes"`
	Objective             string  `mapstructure:"objective"`
	ReplanIntervalMinutes uint32  `mapstructure:"replan_interval_minutes"`
	SoCDriftThreshold     float64 `mapstructure:"soc_drift_threshold"`
	PassTimeoutMillis     uint32  `mapstructure:"pass_timeout_millis"`
}

type BatteryConfig struct {
	CapacityWh      float64 `mapstructure:"capacity_wh"`
	MaxChargeW      float64 `mapstructure:"max_charge_w"`
	MaxDischargeW   float64 `mapstructure:"max_discharge_w"`
	Efficiency      float64 `mapstructure:"efficiency"`
	BackupReserve   float64 `mapstructure:"backup_reserve"`
	InitialSoC      float64 `mapstructure:"initial_soc"`
	UseDeviceLimits bool    `mapstructure:"use_device_limits"`
}

type GridConfig struct {
	MaxImportPower float64 `mapstructure:"max_import_power"`
	MaxExportPower float64 `mapstructure:"max_export_power"`
}

type ActionConfig struct {
	PowerThresholdW     float64 `mapstructure:"power_threshold_w"`
	CheapImportPrice    float64 `mapstructure:"cheap_import_price"`
	ValuableExportPrice float64 `mapstructure:"valuable_export_price"`
}

// TariffConfig defines the fallback time-of-use price curve used when no
// external price forecast is wired in. Periods cover [Start, End) in local
// time, HH:MM. Gaps fall back to the base prices.
type TariffConfig struct {
	BaseImportPrice float64        `mapstructure:"base_import_price"`
	BaseExportPrice float64        `mapstructure:"base_export_price"`
	Periods         []TariffPeriod `mapstructure:"periods"`
}

type TariffPeriod struct {
	Start       string  `mapstructure:"start"`
	End         string  `mapstructure:"end"`
	ImportPrice float64 `mapstructure:"import_price"`
	ExportPrice float64 `mapstructure:"export_price"`
}

type SolarConfig struct {
	Latitude   float64 `mapstructure:"latitude"`
	Longitude  float64 `mapstructure:"longitude"`
	PeakPowerW float64 `mapstructure:"peak_power_w"`
	Clearness  float64 `mapstructure:"clearness"`
}

type LoadConfig struct {
	BasePowerW   float64   `mapstructure:"base_power_w"`
	HourlyFactor []float64 `mapstructure:"hourly_factor"`
}

type EVConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Mode           string  `mapstructure:"mode"`
	GridCapacityW  float64 `mapstructure:"grid_capacity_w"`
	Voltage        float64 `mapstructure:"voltage"`
	Phases         uint32  `mapstructure:"phases"`
	MinCurrentA    float64 `mapstructure:"min_current_a"`
	MaxCurrentA    float64 `mapstructure:"max_current_a"`
	CheapFraction  float64 `mapstructure:"cheap_fraction"`
	DepartureTime  string  `mapstructure:"departure_time"`
	TargetEnergyWh float64 `mapstructure:"target_energy_wh"`
}

type StorageConfig struct {
	Host                       string
	Port                       uint
	UnitId                     uint   `mapstructure:"unit_id"`
	Disabled                   bool   `mapstructure:"disabled"`
	ReadDelayAfterChangeMillis uint32 `mapstructure:"read_delay_after_change_millis"`
}

type TelemetryConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	MaxAgeMillis       uint32 `mapstructure:"max_age_millis"`
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
