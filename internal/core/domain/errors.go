package domain

import (
	"errors"
	"fmt"
	"time"
)

// Planning failure taxonomy. Every failure degrades to a safer stage,
// never into stopping the device's native operation.
var (
	ErrForecastUnavailable = errors.New("forecast unavailable")
	ErrSolverInfeasible    = errors.New("solver reported infeasible problem")
	ErrSolverUnavailable   = errors.New("solver unavailable")
	ErrTelemetryStale      = errors.New("telemetry stale")
	ErrExecutionRejected   = errors.New("execution rejected")
	ErrNoPlan              = errors.New("no plan available")
)

func ForecastUnavailableError(kind SignalKind, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %w", ErrForecastUnavailable, kind, cause)
	}
	return fmt.Errorf("%w: %s: no usable data points", ErrForecastUnavailable, kind)
}

func SolverInfeasibleError(cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %w", ErrSolverInfeasible, cause)
	}
	return ErrSolverInfeasible
}

func SolverUnavailableError(cause error) error {
	return fmt.Errorf("%w: %w", ErrSolverUnavailable, cause)
}

func TelemetryStaleError(age time.Duration, maxAge time.Duration) error {
	return fmt.Errorf("%w: snapshot age %s exceeds %s", ErrTelemetryStale, age.Round(time.Second), maxAge)
}

func ExecutionRejectedError(action Action, cause error) error {
	return fmt.Errorf("%w: action %s: %w", ErrExecutionRejected, action, cause)
}
