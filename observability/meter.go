package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/mainkit/logger"
)

// Metric instrument names.
const (
	MetricRunsTotal       = "mainkit.runs.total"
	MetricRunDuration     = "mainkit.run.duration"
	MetricPhaseDuration   = "mainkit.phase.duration"
	MetricErrorsTotal     = "mainkit.errors.total"
	MetricContainersOpen  = "mainkit.containers.open"
	MetricComponentsTotal = "mainkit.components.started"
)

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
// The provider must be shut down on exit.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))

	return mp, nil
}

// Meter returns the mainkit meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(TracerName)
}

// Metrics holds the instruments recorded during bootstrap runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	runsTotal         metric.Int64Counter
	runDuration       metric.Float64Histogram
	phaseDuration     metric.Float64Histogram
	errorsTotal       metric.Int64Counter
	containersOpen    metric.Int64UpDownCounter
	componentsStarted metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runsTotal, err := meter.Int64Counter(MetricRunsTotal,
		metric.WithDescription("Bootstrap runs by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRunsTotal, err)
	}

	runDuration, err := meter.Float64Histogram(MetricRunDuration,
		metric.WithDescription("Duration of bootstrap runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRunDuration, err)
	}

	phaseDuration, err := meter.Float64Histogram(MetricPhaseDuration,
		metric.WithDescription("Duration of bootstrap phases in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricPhaseDuration, err)
	}

	errorsTotal, err := meter.Int64Counter(MetricErrorsTotal,
		metric.WithDescription("Bootstrap errors by code and phase"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrorsTotal, err)
	}

	containersOpen, err := meter.Int64UpDownCounter(MetricContainersOpen,
		metric.WithDescription("Containers currently open"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricContainersOpen, err)
	}

	componentsStarted, err := meter.Int64Counter(MetricComponentsTotal,
		metric.WithDescription("Lifecycle components started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricComponentsTotal, err)
	}

	return &Metrics{
		runsTotal:         runsTotal,
		runDuration:       runDuration,
		phaseDuration:     phaseDuration,
		errorsTotal:       errorsTotal,
		containersOpen:    containersOpen,
		componentsStarted: componentsStarted,
	}, nil
}

// NoopMetrics returns instruments backed by the no-op meter.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(TracerName))
	return m
}

// RecordRun records a finished run and its duration.
func (m *Metrics) RecordRun(ctx context.Context, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.runsTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordPhase records the duration of one bootstrap phase.
func (m *Metrics) RecordPhase(ctx context.Context, phase, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.String("status", status),
	))
}

// RecordError counts an error by code and the phase it surfaced in.
func (m *Metrics) RecordError(ctx context.Context, code, phase string) {
	if m == nil {
		return
	}
	m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("phase", phase),
	))
}

// ContainerOpened increments the open container gauge.
func (m *Metrics) ContainerOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.containersOpen.Add(ctx, 1)
}

// ContainerClosed decrements the open container gauge.
func (m *Metrics) ContainerClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.containersOpen.Add(ctx, -1)
}

// ComponentStarted counts a started lifecycle component.
func (m *Metrics) ComponentStarted(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.componentsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("component", name)))
}
