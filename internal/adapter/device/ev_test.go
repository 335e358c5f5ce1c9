package device

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimEVChargerClampsCurrent(t *testing.T) {

	assert := assert.New(t)

	charger := NewSimEVCharger(16)

	applied, err := charger.SetCurrent(context.Background(), 10)
	require.NoError(t, err, "set current")
	assert.Equal(10.0, applied, "in-range current applied")

	applied, err = charger.SetCurrent(context.Background(), 32)
	require.NoError(t, err, "set current")
	assert.Equal(16.0, applied, "clamped to the circuit limit")
	assert.Equal(16.0, charger.AppliedCurrent(), "applied value remembered")

	assert.Nil(charger.Stop(context.Background()), "stop")
	assert.Equal(0.0, charger.AppliedCurrent(), "stop clears the current")
}

func TestSimEVChargerFaultInjection(t *testing.T) {

	assert := assert.New(t)

	charger := NewSimEVCharger(16)
	charger.FailWith(fmt.Errorf("charger offline"))

	_, err := charger.SetCurrent(context.Background(), 10)
	assert.NotNil(err, "set current fails")
	assert.NotNil(charger.Stop(context.Background()), "stop fails")

	connected, err := charger.Connected(context.Background())
	require.NoError(t, err, "connected probe unaffected")
	assert.True(connected, "still reported connected")
}
