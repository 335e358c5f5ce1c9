package sunspec_storage

import "sync"

func CreateTestStorageClient() *TestStorageClient {
	return &TestStorageClient{
		State: StorageState{
			StateOfCharge:      50,
			CapacityWattHour:   13500,
			MaxChargePowerW:    5000,
			MaxDischargePowerW: 5000,
			BackupReserve:      20,
			BatteryPowerWatt:   0,
			SolarPowerWatt:     1800,
			LoadPowerWatt:      650,
			GridPowerWatt:      -1150,
		},
	}
}

// TestStorageClient is an in-memory device double. State and the last
// written control are inspectable; ReadError/WriteError inject faults.
type TestStorageClient struct {
	mu          sync.Mutex
	State       StorageState
	LastControl *StorageControlParams
	ReadError   error
	WriteError  error
}

var _ StorageController = (*TestStorageClient)(nil)

func (c *TestStorageClient) Open() error {
	return nil
}

func (c *TestStorageClient) Close() error {
	return nil
}

func (c *TestStorageClient) GetState() (*StorageState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ReadError != nil {
		return nil, c.ReadError
	}
	state := c.State
	return &state, nil
}

func (c *TestStorageClient) SetControl(params StorageControlParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteError != nil {
		return c.WriteError
	}
	c.LastControl = &params
	return nil
}

func (c *TestStorageClient) SetState(state StorageState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.State = state
}
