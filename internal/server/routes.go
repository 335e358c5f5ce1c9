package server

import (
	"net/http"
	"time"

	"powerplan2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/api/plan", s.PlanHandler)
	e.GET("/api/status", s.StatusHandler)
	e.GET("/api/ev", s.EVHandler)
	e.POST("/api/replan", s.ReplanHandler)

	return e
}

type intervalDTO struct {
	Time         time.Time `json:"time"`
	Action       string    `json:"action"`
	BatteryKW    float64   `json:"battery_kw"`
	GridImportKW float64   `json:"grid_import_kw"`
	GridExportKW float64   `json:"grid_export_kw"`
	SoC          float64   `json:"soc"`
	ImportPrice  float64   `json:"import_price_kwh"`
}

type windowDTO struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Action     string    `json:"action"`
	AvgPowerKW float64   `json:"avg_power_kw"`
}

type planDTO struct {
	Seq           uint64        `json:"seq"`
	CreatedAt     time.Time     `json:"created_at"`
	Provenance    string        `json:"provenance"`
	Confidence    string        `json:"confidence"`
	PredictedCost float64       `json:"predicted_cost"`
	BaselineCost  float64       `json:"baseline_cost"`
	Savings       float64       `json:"savings"`
	Windows       []windowDTO   `json:"windows"`
	Intervals     []intervalDTO `json:"intervals"`
}

type statusDTO struct {
	Provenance      string     `json:"provenance"`
	Confidence      string     `json:"confidence"`
	Degraded        bool       `json:"degraded"`
	CurrentAction   string     `json:"current_action"`
	CurrentEnd      *time.Time `json:"current_end,omitempty"`
	NextAction      string     `json:"next_action"`
	NextStart       *time.Time `json:"next_start,omitempty"`
	PredictedCost   float64    `json:"predicted_cost"`
	Savings         float64    `json:"savings"`
	BatterySoC      *float64   `json:"battery_soc,omitempty"`
	BatteryPowerW   *float64   `json:"battery_power_w,omitempty"`
	TelemetryAgeSec *float64   `json:"telemetry_age_sec,omitempty"`
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) PlanHandler(c echo.Context) error {
	plan := s.planReader.ActivePlan()
	if plan == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no plan available"})
	}
	return c.JSON(http.StatusOK, planToDTO(plan))
}

func (s *Server) StatusHandler(c echo.Context) error {
	plan := s.planReader.ActivePlan()
	if plan == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no plan available"})
	}
	now := time.Now()
	status := statusDTO{
		Provenance:    plan.Provenance.String(),
		Confidence:    plan.Confidence.String(),
		Degraded:      plan.Provenance.Degraded(),
		CurrentAction: "not_available",
		NextAction:    "not_available",
		PredictedCost: plan.Cost.PredictedCost,
		Savings:       plan.Cost.Savings,
	}
	current, next := plan.WindowAt(now)
	if current != nil {
		status.CurrentAction = current.Action.String()
		status.CurrentEnd = &current.End
	}
	if next != nil {
		status.NextAction = next.Action.String()
		status.NextStart = &next.Start
	}
	if snap := s.planReader.LastTelemetry(); snap != nil {
		soc := snap.SoC * 100
		power := snap.BatteryPowerW
		age := now.Sub(snap.Time).Seconds()
		status.BatterySoC = &soc
		status.BatteryPowerW = &power
		status.TelemetryAgeSec = &age
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) EVHandler(c echo.Context) error {
	budget := s.planReader.LastEVBudget()
	if budget == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no ev budget available"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"time":              budget.Time,
		"available_w":       budget.AvailableW,
		"requested_w":       budget.RequestedW,
		"requested_current": budget.RequestedCurrent,
		"charging":          budget.Charging,
		"reason":            budget.Reason,
	})
}

func (s *Server) ReplanHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.TriggerReplanRequest{
		Reason: "api request",
	}, 10*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	if response, ok := res.(domain.TriggerReplanResponse); ok {
		return c.JSON(http.StatusOK, map[string]bool{"accepted": response.Accepted})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "unexpected response"})
}

func planToDTO(plan *domain.SchedulePlan) planDTO {
	dto := planDTO{
		Seq:           plan.Seq,
		CreatedAt:     plan.CreatedAt,
		Provenance:    plan.Provenance.String(),
		Confidence:    plan.Confidence.String(),
		PredictedCost: plan.Cost.PredictedCost,
		BaselineCost:  plan.Cost.BaselineCost,
		Savings:       plan.Cost.Savings,
	}
	for _, w := range plan.Windows {
		dto.Windows = append(dto.Windows, windowDTO{
			Start:      w.Start,
			End:        w.End,
			Action:     w.Action.String(),
			AvgPowerKW: w.AvgPowerKW,
		})
	}
	for _, iv := range plan.Intervals {
		dto.Intervals = append(dto.Intervals, intervalDTO{
			Time:         iv.Time,
			Action:       iv.Action.String(),
			BatteryKW:    iv.BatteryKW,
			GridImportKW: iv.GridImportKW,
			GridExportKW: iv.GridExportKW,
			SoC:          iv.SoC,
			ImportPrice:  iv.ImportPriceKWh,
		})
	}
	return dto
}
