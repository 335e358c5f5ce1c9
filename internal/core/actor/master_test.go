package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "powerplan2mqtt/internal/adapter/actor"
	"powerplan2mqtt/internal/adapter/device"
	"powerplan2mqtt/internal/config"
	"powerplan2mqtt/internal/adapter/provider"
	"powerplan2mqtt/internal/core/domain"
	"powerplan2mqtt/internal/core/service"
	"powerplan2mqtt/internal/util"
	"powerplan2mqtt/pkg/sunspec_storage"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testLogger(cfg *config.Config) *zap.Logger {
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zap.Must(logCfg.Build())
}

func testPlanningPass(logger *zap.Logger) *service.PlanningPass {
	static := &provider.StaticProvider{
		Interval:    15 * time.Minute,
		ImportPrice: []float64{0.10, 0.10, 0.10, 0.10, 0.50, 0.50, 0.50, 0.50},
		ExportPrice: []float64{0.05, 0.05, 0.05, 0.05, 0.40, 0.40, 0.40, 0.40},
		Solar:       make([]float64, 8),
		Load:        []float64{2, 2, 2, 2, 2, 2, 2, 2},
	}
	aggregator := service.NewForecastAggregator(static, static, static, logger)
	passCfg := service.PassConfig{
		Interval:    15 * time.Minute,
		Horizon:     2 * time.Hour,
		Objective:   domain.ObjectiveCost,
		Bands:       service.ActionBands{PowerThresholdKW: 0.1},
		MaxImportKW: 11,
		MaxExportKW: 11,
		BatteryDefaults: domain.BatteryModel{
			CapacityKWh:    13.5,
			MaxChargeKW:    5,
			MaxDischargeKW: 5,
			Efficiency:     0.92,
			BackupReserve:  0.20,
			SoC:            0.50,
		},
		TelemetryMaxAge: time.Minute,
	}
	return service.NewPlanningPass(passCfg, aggregator,
		service.NewLPSolver(1, logger), service.NewGreedyPlanner(logger), logger)
}

func testStorageActorProvider(logger *zap.Logger) (StorageActorProvider, *sunspec_storage.TestStorageClient) {
	client := sunspec_storage.CreateTestStorageClient()
	return func() *adactor.StorageActor {
		adapter := device.NewStorageDeviceAdapter(client, 600*time.Second, logger)
		return adactor.NewStorageActor(adapter, 2*time.Second, logger)
	}, client
}

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := testLogger(&cfg)

	planStore := service.NewPlanStore()
	pass := testPlanningPass(logger)
	evCalc := testEVCalc(&cfg, logger)
	evCharger := device.NewSimEVCharger(cfg.EV.MaxCurrentA)
	storageProvider, _ := testStorageActorProvider(logger)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, planStore, pass, evCalc, evCharger,
			storageProvider, func(_ *eventstream.EventStream) *adactor.MQTTActor {
				return adactor.NewTestMQTTActor(&cfg, logger)
			}, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	// the startup pass has finished by now, the plan is served via the master
	res, err = context.RequestFuture(pid, domain.GetPlanRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	planResp, ok := res.(domain.GetPlanResponse)
	assert.True(t, ok)
	assert.NotNil(t, planResp.Plan, "startup pass produced a plan")
	assert.Equal(t, domain.ProvenanceSolver, planResp.Plan.Provenance, "solver plan")

	context.Stop(pid)

	as.Shutdown()
}
