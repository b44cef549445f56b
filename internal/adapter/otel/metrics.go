package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "accessdesk"

// Metrics holds all AccessDesk metric instruments.
type Metrics struct {
	TogglesStarted    metric.Int64Counter
	TogglesApplied    metric.Int64Counter
	TogglesRolledBack metric.Int64Counter
	TogglesRejected   metric.Int64Counter
	ToggleDuration    metric.Float64Histogram
	DirectoryLoads    metric.Int64Counter
	AuditAppends      metric.Int64Counter
	AuditFailures     metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TogglesStarted, err = meter.Int64Counter("accessdesk.toggles.started",
		metric.WithDescription("Number of access toggles dispatched to the remote API"))
	if err != nil {
		return nil, err
	}

	m.TogglesApplied, err = meter.Int64Counter("accessdesk.toggles.applied",
		metric.WithDescription("Number of access toggles confirmed by the remote API"))
	if err != nil {
		return nil, err
	}

	m.TogglesRolledBack, err = meter.Int64Counter("accessdesk.toggles.rolled_back",
		metric.WithDescription("Number of access toggles reverted after a remote failure"))
	if err != nil {
		return nil, err
	}

	m.TogglesRejected, err = meter.Int64Counter("accessdesk.toggles.rejected",
		metric.WithDescription("Number of toggles ignored because the cell was already updating"))
	if err != nil {
		return nil, err
	}

	m.ToggleDuration, err = meter.Float64Histogram("accessdesk.toggle.duration_seconds",
		metric.WithDescription("Time from optimistic apply to remote settlement in seconds"))
	if err != nil {
		return nil, err
	}

	m.DirectoryLoads, err = meter.Int64Counter("accessdesk.directory.loads",
		metric.WithDescription("Number of directory loads by outcome"))
	if err != nil {
		return nil, err
	}

	m.AuditAppends, err = meter.Int64Counter("accessdesk.audit.appends",
		metric.WithDescription("Number of audit entries written"))
	if err != nil {
		return nil, err
	}

	m.AuditFailures, err = meter.Int64Counter("accessdesk.audit.failures",
		metric.WithDescription("Number of audit entries lost to slot errors"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
