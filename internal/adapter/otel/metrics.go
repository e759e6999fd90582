package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "sparkier"

// Metrics holds all Sparkier metric instruments.
type Metrics struct {
	IntakeResolved      metric.Int64Counter
	RequestsCreated     metric.Int64Counter
	RequestsResumed     metric.Int64Counter
	SignUpDeferred      metric.Int64Counter
	IntakeDuration      metric.Float64Histogram
	NotificationsSent   metric.Int64Counter
	NotificationsFailed metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.IntakeResolved, err = meter.Int64Counter("sparkier.intake.resolved",
		metric.WithDescription("Number of intake resolutions, any outcome"))
	if err != nil {
		return nil, err
	}

	m.RequestsCreated, err = meter.Int64Counter("sparkier.requests.created",
		metric.WithDescription("Number of client requests created"))
	if err != nil {
		return nil, err
	}

	m.RequestsResumed, err = meter.Int64Counter("sparkier.requests.resumed",
		metric.WithDescription("Number of intakes resolved to an existing in-flight request"))
	if err != nil {
		return nil, err
	}

	m.SignUpDeferred, err = meter.Int64Counter("sparkier.intake.signup_deferred",
		metric.WithDescription("Number of intakes deferred pending sign-up"))
	if err != nil {
		return nil, err
	}

	m.IntakeDuration, err = meter.Float64Histogram("sparkier.intake.duration_seconds",
		metric.WithDescription("Intake resolution duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.NotificationsSent, err = meter.Int64Counter("sparkier.notifications.sent",
		metric.WithDescription("Number of notifications delivered"))
	if err != nil {
		return nil, err
	}

	m.NotificationsFailed, err = meter.Int64Counter("sparkier.notifications.failed",
		metric.WithDescription("Number of notification deliveries that failed"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
