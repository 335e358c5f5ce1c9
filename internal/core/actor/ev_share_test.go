package actor

import (
	"testing"
	"time"

	"powerplan2mqtt/internal/adapter/device"
	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/service"
	"powerplan2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEVCalc(cfg *config.Config, logger *zap.Logger) *service.EVShareCalculator {
	return service.NewEVShareCalculator(domain.EVChargerModel{
		GridCapacityW: cfg.EV.GridCapacityW,
		Voltage:       cfg.EV.Voltage,
		Phases:        int(cfg.EV.Phases),
		MinCurrentA:   cfg.EV.MinCurrentA,
		MaxCurrentA:   cfg.EV.MaxCurrentA,
	}, cfg.EV.CheapFraction, logger)
}

func TestEVShareActorChargesOnTelemetry(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	cfg.EV.Mode = "immediate"
	logger := testLogger(&cfg)
	planStore := service.NewPlanStore()
	es := &eventstream.EventStream{}
	charger := device.NewSimEVCharger(cfg.EV.MaxCurrentA)

	pid, err := context.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return NewEVShareActor(&cfg, testEVCalc(&cfg, logger), charger, planStore, es, logger)
	}), "ev_share")
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	// plenty of grid headroom, the charger should ramp up
	es.Publish(domain.TelemetryUpdatedEvent{Snapshot: domain.TelemetrySnapshot{
		Time:       time.Now(),
		SoC:        0.8,
		LoadPowerW: 400,
	}})

	time.Sleep(time.Second)

	assert.Greater(t, charger.AppliedCurrent(), 0.0, "charger ramped up")
	budget := planStore.LastEVBudget()
	require.NotNil(t, budget, "budget stored")
	assert.True(t, budget.Charging, "charging budget")
	assert.Equal(t, charger.AppliedCurrent(), budget.RequestedCurrent, "applied current in budget")

	context.Stop(pid)
	as.Shutdown()
}

func TestEVShareActorModeSwitch(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	cfg.EV.Mode = "immediate"
	logger := testLogger(&cfg)
	planStore := service.NewPlanStore()
	es := &eventstream.EventStream{}
	charger := device.NewSimEVCharger(cfg.EV.MaxCurrentA)

	pid, err := context.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return NewEVShareActor(&cfg, testEVCalc(&cfg, logger), charger, planStore, es, logger)
	}), "ev_share")
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	res, err := context.RequestFuture(pid, domain.EVGetModeRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	modeResp, ok := res.(domain.EVGetModeResponse)
	assert.True(t, ok)
	assert.Equal(t, domain.EVModeImmediate, modeResp.Mode, "configured mode")

	res, err = context.RequestFuture(pid, domain.EVSetModeRequest{Mode: domain.EVModeOff}, 5*time.Second).Result()
	require.NoError(t, err)
	setResp, ok := res.(domain.EVSetModeResponse)
	assert.True(t, ok)
	assert.Equal(t, domain.EVModeOff, setResp.Mode, "mode changed")

	// charging stops once the mode is off
	es.Publish(domain.TelemetryUpdatedEvent{Snapshot: domain.TelemetrySnapshot{
		Time:       time.Now(),
		SoC:        0.8,
		LoadPowerW: 400,
	}})
	time.Sleep(time.Second)
	assert.Equal(t, 0.0, charger.AppliedCurrent(), "charger stays off")

	context.Stop(pid)
	as.Shutdown()
}
