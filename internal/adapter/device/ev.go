package device

import (
	"context"
	"sync"

	"powerplan2mqtt/internal/core/port"
)

// SimEVCharger is an in-process charger used when no physical charger
// integration is configured and in tests. It accepts any current up to
// its limit and remembers the applied value.
type SimEVCharger struct {
	mu        sync.Mutex
	maxA      float64
	appliedA  float64
	connected bool
	failWith  error
}

var _ port.EVCharger = (*SimEVCharger)(nil)

func NewSimEVCharger(maxCurrentA float64) *SimEVCharger {
	return &SimEVCharger{maxA: maxCurrentA, connected: true}
}

func (c *SimEVCharger) SetCurrent(ctx context.Context, amps float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return 0, c.failWith
	}
	if amps > c.maxA {
		amps = c.maxA
	}
	c.appliedA = amps
	return amps, nil
}

func (c *SimEVCharger) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.appliedA = 0
	return nil
}

func (c *SimEVCharger) Connected(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected, nil
}

func (c *SimEVCharger) AppliedCurrent() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appliedA
}

func (c *SimEVCharger) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

func (c *SimEVCharger) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}
