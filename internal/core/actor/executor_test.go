package actor

import (
	"fmt"
	"testing"
	"time"

	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/service"
	"powerplan2mqtt/internal/util"
	"powerplan2mqtt/pkg/sunspec_storage"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chargePlan(t *testing.T, now time.Time) *domain.SchedulePlan {
	grid, err := domain.NewTimeGrid(now, 15*time.Minute, time.Hour)
	require.NoError(t, err, "grid build")
	plan := &domain.SchedulePlan{
		Seq:       1,
		CreatedAt: now,
		Grid:      grid,
	}
	for i := 0; i < grid.N; i++ {
		plan.Intervals = append(plan.Intervals, domain.IntervalDecision{
			Time:      grid.TimeAt(i),
			Action:    domain.ActionCharge,
			BatteryKW: 3,
			SoC:       0.5,
		})
	}
	plan.Windows = service.CoalesceWindows(grid, plan.Intervals)
	return plan
}

func TestExecutorAppliesActivePlan(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := testLogger(&cfg)
	planStore := service.NewPlanStore()
	es := &eventstream.EventStream{}

	storageProvider, client := testStorageActorProvider(logger)
	storagePID, err := context.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return storageProvider()
	}), "storage")
	require.NoError(t, err)

	pid, err := context.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return NewExecutorActor(&cfg, storagePID, planStore, es, logger)
	}), "executor")
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	plan := chargePlan(t, time.Now())
	assert.True(t, planStore.AdoptPlan(plan), "plan adopted")
	es.Publish(domain.PlanUpdatedEvent{Plan: plan})

	time.Sleep(time.Second)

	control := client.LastControl
	require.NotNil(t, control, "control written to the device")
	assert.Equal(t, sunspec_storage.CONTROL_MODE_FORCE_CHARGE, control.Mode, "charge mode applied")
	assert.Equal(t, uint32(3000), control.TargetPowerWatt, "planned power applied")

	context.Stop(pid)
	context.Stop(storagePID)
	as.Shutdown()
}

func TestExecutorRetriesAfterRejectedWrite(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := testLogger(&cfg)
	planStore := service.NewPlanStore()
	es := &eventstream.EventStream{}

	storageProvider, client := testStorageActorProvider(logger)
	storagePID, err := context.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return storageProvider()
	}), "storage")
	require.NoError(t, err)

	pid, err := context.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return NewExecutorActor(&cfg, storagePID, planStore, es, logger)
	}), "executor")
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	client.WriteError = fmt.Errorf("device busy")

	plan := chargePlan(t, time.Now())
	require.True(t, planStore.AdoptPlan(plan), "plan adopted")
	es.Publish(domain.PlanUpdatedEvent{Plan: plan})

	time.Sleep(time.Second)

	assert.Nil(t, client.LastControl, "rejected write left no control on the device")

	// once the device recovers, the next plan event re-applies the action
	client.WriteError = nil
	es.Publish(domain.PlanUpdatedEvent{Plan: plan})

	time.Sleep(time.Second)

	control := client.LastControl
	require.NotNil(t, control, "control written after recovery")
	assert.Equal(t, sunspec_storage.CONTROL_MODE_FORCE_CHARGE, control.Mode, "charge mode applied")

	context.Stop(pid)
	context.Stop(storagePID)
	as.Shutdown()
}

func TestExecutorPauseHandsDeviceBack(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := testLogger(&cfg)
	planStore := service.NewPlanStore()
	es := &eventstream.EventStream{}

	storageProvider, client := testStorageActorProvider(logger)
	storagePID, err := context.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return storageProvider()
	}), "storage")
	require.NoError(t, err)

	pid, err := context.SpawnNamed(actor.PropsFromProducer(func() actor.Actor {
		return NewExecutorActor(&cfg, storagePID, planStore, es, logger)
	}), "executor")
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	plan := chargePlan(t, time.Now())
	planStore.AdoptPlan(plan)
	es.Publish(domain.PlanUpdatedEvent{Plan: plan})
	time.Sleep(time.Second)

	context.Send(pid, domain.PlannerPauseRequest{Enable: true})
	time.Sleep(time.Second)

	control := client.LastControl
	require.NotNil(t, control, "control written to the device")
	assert.Equal(t, sunspec_storage.CONTROL_MODE_AUTO, control.Mode, "device returned to auto mode")

	context.Stop(pid)
	context.Stop(storagePID)
	as.Shutdown()
}
