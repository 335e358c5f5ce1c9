package sunspec_storage

// StorageState is one full telemetry read from the storage device.
// Power sign conventions: BatteryPowerWatt > 0 while charging,
// GridPowerWatt > 0 while importing.
type StorageState struct {
	StateOfCharge      float64 // 0-100
	CapacityWattHour   float64
	MaxChargePowerW    float64
	MaxDischargePowerW float64
	BackupReserve      float64 // 0-100
	BatteryPowerWatt   float64
	SolarPowerWatt     float64
	LoadPowerWatt      float64
	GridPowerWatt      float64
}

// Control modes written to the device mode register.
const (
	CONTROL_MODE_AUTO            uint16 = 0
	CONTROL_MODE_FORCE_CHARGE    uint16 = 1
	CONTROL_MODE_FORCE_DISCHARGE uint16 = 2
	CONTROL_MODE_HOLD            uint16 = 3
)

// StorageControlParams is one discrete mode change. TargetPowerWatt is
// the forced rate for charge/discharge modes. RevertTimeSeconds returns
// the device to auto mode if no further command arrives, so a dead
// controller never leaves a forced mode latched.
type StorageControlParams struct {
	Mode              uint16
	TargetPowerWatt   uint32
	RevertTimeSeconds uint16
}

// StorageReader is the read side of the device.
type StorageReader interface {
	Open() error
	Close() error
	GetState() (*StorageState, error)
}

// StorageController adds the control register writes.
type StorageController interface {
	StorageReader
	SetControl(params StorageControlParams) error
}
