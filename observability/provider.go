package observability

import (
	"context"
	stderrors "errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Provider owns the exporters installed by Setup.
type Provider struct {
	Tracer  *sdktrace.TracerProvider
	Meter   *sdkmetric.MeterProvider
	Metrics *Metrics
}

// Setup installs the exporters enabled in cfg and builds the bootstrap
// metrics on the resulting global meter. With nothing enabled it returns a
// provider whose metrics are no-ops.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	p := &Provider{}

	if cfg.Tracing {
		tp, err := InitTracer(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("observability: %w", err)
		}
		p.Tracer = tp
	}

	if !cfg.Metrics {
		p.Metrics = NoopMetrics()
		return p, nil
	}

	mp, err := InitMeter(ctx, cfg)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("observability: %w", err)
	}
	p.Meter = mp

	metrics, err := NewMetrics(Meter())
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("observability: %w", err)
	}
	p.Metrics = metrics
	return p, nil
}

// Shutdown flushes and stops whichever providers were installed.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Tracer != nil {
		if err := p.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if p.Meter != nil {
		if err := p.Meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return stderrors.Join(errs...)
}
