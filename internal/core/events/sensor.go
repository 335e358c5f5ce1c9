package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "powerplan2mqtt/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE        = "bridge"
	SENSOR_ID_CURRENT_ACTION      = "current_action"
	SENSOR_ID_CURRENT_ACTION_END  = "current_action_end"
	SENSOR_ID_NEXT_ACTION         = "next_action"
	SENSOR_ID_NEXT_ACTION_START   = "next_action_start"
	SENSOR_ID_PREDICTED_COST      = "predicted_cost"
	SENSOR_ID_PREDICTED_SAVINGS   = "predicted_savings"
	SENSOR_ID_PLAN_PROVENANCE     = "plan_provenance"
	SENSOR_ID_PLAN_CONFIDENCE     = "plan_confidence"
	SENSOR_ID_PLAN_DEGRADED       = "plan_degraded"
	SENSOR_ID_BATTERY_SOC         = "battery_soc"
	SENSOR_ID_BATTERY_POWER       = "battery_power"
	SENSOR_ID_SOLAR_POWER         = "solar_power"
	SENSOR_ID_HOUSE_POWER         = "house_power"
	SENSOR_ID_GRID_POWER          = "grid_power"
	SENSOR_ID_EV_AVAILABLE_POWER  = "ev_available_power"
	SENSOR_ID_EV_REQUESTED_POWER  = "ev_requested_power"
	SENSOR_ID_EV_CURRENT          = "ev_requested_current"
	SENSOR_ID_EV_CHARGING         = "ev_charging"
	SWITCH_ID_OPTIMIZER_PAUSE     = "optimizer_pause"
	SELECT_ID_EV_MODE             = "ev_mode"
	STATE_CLASS_MEASUREMENT       = "measurement"
	DEVICE_CLASS_BATTERY          = "battery"
	DEVICE_CLASS_CURRENT          = "current"
	DEVICE_CLASS_MONETARY         = "monetary"
	DEVICE_CLASS_POWER            = "power"
	DEVICE_CLASS_TIMESTAMP        = "timestamp"
	DEVICE_CLASS_CONNECTIVITY     = "connectivity"
	DEVICE_CLASS_BATTERY_CHARGING = "battery_charging"
	ENTITY_CLASS_DIAGNOSTIC       = "diagnostic"
	SENSOR_TYPE_SENSOR            = "sensor"
	SENSOR_TYPE_BINARY            = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("powerplan_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "Powerplan",
		Model:        "Powerplan",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Powerplan %s", md5HashShort(baseTopic)),
	}
}

func PlanSensors(device Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:     device,
		Id:         SENSOR_ID_CURRENT_ACTION,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Current action",
		Icon:       "mdi:battery-clock",
		UniqueId:   uniqueId(device.Id, SENSOR_ID_CURRENT_ACTION),
	})

	sensors = append(sensors, GenericSensor{
		Device:      device,
		Id:          SENSOR_ID_CURRENT_ACTION_END,
		SensorType:  SENSOR_TYPE_SENSOR,
		Name:        "Current action end",
		DeviceClass: DEVICE_CLASS_TIMESTAMP,
		UniqueId:    uniqueId(device.Id, SENSOR_ID_CURRENT_ACTION_END),
	})

	sensors = append(sensors, GenericSensor{
		Device:     device,
		Id:         SENSOR_ID_NEXT_ACTION,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Next action",
		Icon:       "mdi:skip-next",
		UniqueId:   uniqueId(device.Id, SENSOR_ID_NEXT_ACTION),
	})

	sensors = append(sensors, GenericSensor{
		Device:      device,
		Id:          SENSOR_ID_NEXT_ACTION_START,
		SensorType:  SENSOR_TYPE_SENSOR,
		Name:        "Next action start",
		DeviceClass: DEVICE_CLASS_TIMESTAMP,
		UniqueId:    uniqueId(device.Id, SENSOR_ID_NEXT_ACTION_START),
	})

	sensors = append(sensors, GenericSensor{
		Device:      device,
		Id:          SENSOR_ID_PREDICTED_COST,
		SensorType:  SENSOR_TYPE_SENSOR,
		Name:        "Predicted daily cost",
		DeviceClass: DEVICE_CLASS_MONETARY,
		UniqueId:    uniqueId(device.Id, SENSOR_ID_PREDICTED_COST),
	})

	sensors = append(sensors, GenericSensor{
		Device:      device,
		Id:          SENSOR_ID_PREDICTED_SAVINGS,
		SensorType:  SENSOR_TYPE_SENSOR,
		Name:        "Predicted daily savings",
		DeviceClass: DEVICE_CLASS_MONETARY,
		UniqueId:    uniqueId(device.Id, SENSOR_ID_PREDICTED_SAVINGS),
	})

	sensors = append(sensors, GenericSensor{
		Device:         device,
		Id:             SENSOR_ID_PLAN_PROVENANCE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Plan provenance",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(device.Id, SENSOR_ID_PLAN_PROVENANCE),
	})

	sensors = append(sensors, GenericSensor{
		Device:         device,
		Id:             SENSOR_ID_PLAN_CONFIDENCE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Plan confidence",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(device.Id, SENSOR_ID_PLAN_CONFIDENCE),
	})

	sensors = append(sensors, GenericSensor{
		Device:         device,
		Id:             SENSOR_ID_PLAN_DEGRADED,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Plan degraded",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(device.Id, SENSOR_ID_PLAN_DEGRADED),
	})

	return sensors
}

func TelemetrySensors(device Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_BATTERY_SOC),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_BATTERY_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_BATTERY_POWER),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_SOLAR_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Solar power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:solar-power",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_SOLAR_POWER),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_HOUSE_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "House power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:home-lightning-bolt",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_HOUSE_POWER),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_GRID_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Grid power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:transmission-tower",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_GRID_POWER),
	})

	return sensors
}

func EVSensors(device Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_EV_AVAILABLE_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "EV available power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:ev-station",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_EV_AVAILABLE_POWER),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_EV_REQUESTED_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "EV requested power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_EV_REQUESTED_POWER),
	})

	sensors = append(sensors, GenericSensor{
		Device:            device,
		Id:                SENSOR_ID_EV_CURRENT,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "EV requested current",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		UniqueId:          uniqueId(device.Id, SENSOR_ID_EV_CURRENT),
	})

	sensors = append(sensors, GenericSensor{
		Device:      device,
		Id:          SENSOR_ID_EV_CHARGING,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "EV charging",
		DeviceClass: DEVICE_CLASS_BATTERY_CHARGING,
		UniqueId:    uniqueId(device.Id, SENSOR_ID_EV_CHARGING),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

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

func PlannerSwitches(device Device) []GenericSwitch {

	var switches []GenericSwitch

	switches = append(switches, GenericSwitch{
		Device:   device,
		Id:       SWITCH_ID_OPTIMIZER_PAUSE,
		Name:     "Optimizer pause",
		UniqueId: uniqueId(device.Id, SWITCH_ID_OPTIMIZER_PAUSE),
		Icon:     "mdi:pause-octagon",
	})

	return switches
}

func EVModeSelect(device Device) GenericSelect {
	return GenericSelect{
		Device:   device,
		Id:       SELECT_ID_EV_MODE,
		Name:     "EV charge mode",
		UniqueId: uniqueId(device.Id, SELECT_ID_EV_MODE),
		Icon:     "mdi:car-electric",
		Options: []string{
			EVModeOff.String(), EVModeSmart.String(), EVModeSolarOnly.String(),
			EVModeImmediate.String(), EVModeScheduled.String(),
		},
	}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5HashShort(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])[0:8]
}
