package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records submission and job outcomes through an OpenTelemetry
// meter exported on the default Prometheus registry.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	submissions   otelmetric.Int64Counter
	duration      otelmetric.Float64Histogram
	sessions      otelmetric.Int64UpDownCounter
}

// New returns a working Observability, or an inert one plus the exporter
// error when Prometheus registration fails.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	submissions, _ := meter.Int64Counter(
		"opportunity.submissions",
		otelmetric.WithDescription("Opportunity wizard submissions"),
	)
	duration, _ := meter.Float64Histogram(
		"opportunity.submission.duration",
		otelmetric.WithDescription("Time from submit to backend response"),
		otelmetric.WithUnit("ms"),
	)
	sessions, _ := meter.Int64UpDownCounter(
		"wizard.sessions.active",
		otelmetric.WithDescription("Open wizard sessions"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		submissions:   submissions,
		duration:      duration,
		sessions:      sessions,
	}, nil
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordSubmission(ctx context.Context, mode, outcome string, elapsed time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	)
	if o.submissions != nil {
		o.submissions.Add(ctx, 1, attrs)
	}
	if o.duration != nil {
		o.duration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	}
}

func (o *Observability) SessionOpened(ctx context.Context) {
	if o.sessions != nil {
		o.sessions.Add(ctx, 1)
	}
}

func (o *Observability) SessionClosed(ctx context.Context) {
	if o.sessions != nil {
		o.sessions.Add(ctx, -1)
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
