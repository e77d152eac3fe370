// Package observability wires OpenTelemetry tracing and metrics into the
// mainkit bootstrap lifecycle.
//
// Setup installs OTLP/HTTP exporters for whichever signals are enabled and
// returns a Provider whose Metrics record bootstrap runs:
//
//	p, err := observability.Setup(ctx, cfg.Observability)
//	defer p.Shutdown(ctx)
//
// Phases of a run are traced with StartPhase:
//
//	ctx, phase := observability.StartPhase(ctx, observability.SpanContainerInitialize, p.Metrics)
//	defer phase.End(ctx, err)
//
// Health:
//
//	health := observability.NewServiceHealth(containerID, version.Get().Version)
//	health.AddComponent(observability.Health{Name: "store", Status: observability.HealthStatusUp})
package observability
