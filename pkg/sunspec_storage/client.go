package sunspec_storage

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
)

// Register map for the storage model block, relative to the model base
// address. Registers use fixed scaling: percentages in 0.01 % units,
// powers in 10 W units, capacity in 10 Wh units.
const (
	modelBaseAddress = 40070

	regStateOfCharge     = 0
	regCapacity          = 1
	regMaxChargePower    = 2
	regMaxDischargePower = 3
	regBackupReserve     = 4
	regBatteryPower      = 5
	regSolarPower        = 6
	regLoadPower         = 7
	regGridPower         = 8

	controlBaseAddress = modelBaseAddress + 16

	regControlMode   = 0
	regControlPower  = 1
	regControlRevert = 2

	percentScale = 0.01
	powerScale   = 10.0
)

type ModbusStorageClient struct {
	client *modbus.ModbusClient
}

var _ StorageController = (*ModbusStorageClient)(nil)

func NewModbusStorageClient(host string, port uint, unitId uint, timeout time.Duration) (*ModbusStorageClient, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	if err := client.SetUnitId(uint8(unitId)); err != nil {
		return nil, err
	}
	return &ModbusStorageClient{client: client}, nil
}

func (c *ModbusStorageClient) Open() error {
	return c.client.Open()
}

func (c *ModbusStorageClient) Close() error {
	return c.client.Close()
}

func (c *ModbusStorageClient) GetState() (*StorageState, error) {
	regs, err := c.client.ReadRegisters(modelBaseAddress, 9, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, err
	}
	return &StorageState{
		StateOfCharge:      float64(regs[regStateOfCharge]) * percentScale,
		CapacityWattHour:   float64(regs[regCapacity]) * powerScale,
		MaxChargePowerW:    float64(regs[regMaxChargePower]) * powerScale,
		MaxDischargePowerW: float64(regs[regMaxDischargePower]) * powerScale,
		BackupReserve:      float64(regs[regBackupReserve]) * percentScale,
		BatteryPowerWatt:   float64(int16(regs[regBatteryPower])) * powerScale,
		SolarPowerWatt:     float64(regs[regSolarPower]) * powerScale,
		LoadPowerWatt:      float64(regs[regLoadPower]) * powerScale,
		GridPowerWatt:      float64(int16(regs[regGridPower])) * powerScale,
	}, nil
}

func (c *ModbusStorageClient) SetControl(params StorageControlParams) error {
	power := uint16(float64(params.TargetPowerWatt) / powerScale)
	data := []uint16{params.Mode, power, params.RevertTimeSeconds}
	return c.client.WriteRegisters(controlBaseAddress+regControlMode, data)
}
