package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/mainkit/errors"
)

// Phase tracks one traced and timed step of a bootstrap run.
type Phase struct {
	Name      string
	StartTime time.Time
	span      trace.Span
	metrics   *Metrics
}

// StartPhase starts a span named name and returns the phase tracking it.
// metrics may be nil.
func StartPhase(ctx context.Context, name string, metrics *Metrics, attrs ...attribute.KeyValue) (context.Context, *Phase) {
	ctx, span := StartSpan(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Phase{
		Name:      name,
		StartTime: time.Now(),
		span:      span,
		metrics:   metrics,
	}
}

// Span returns the phase span.
func (p *Phase) Span() trace.Span {
	return p.span
}

// Duration returns the elapsed time since the phase started.
func (p *Phase) Duration() time.Duration {
	return time.Since(p.StartTime)
}

// End ends the span and records the phase duration. A non-nil err marks the
// span failed and is counted under its error code.
func (p *Phase) End(ctx context.Context, err error) {
	duration := p.Duration()
	status := "ok"

	if err != nil {
		status = "error"
		code := ErrorCode(err)
		p.span.RecordError(err)
		p.span.SetStatus(codes.Error, err.Error())
		p.span.SetAttributes(attribute.String(AttrErrorCode, code))
		p.metrics.RecordError(ctx, code, p.Name)
	} else {
		p.span.SetStatus(codes.Ok, "")
	}

	p.span.SetAttributes(attribute.Int64(AttrDurationMs, duration.Milliseconds()))
	p.span.End()
	p.metrics.RecordPhase(ctx, p.Name, status, duration)
}

// ErrorCode returns the application error code carried by err, or
// INTERNAL_ERROR for errors without one.
func ErrorCode(err error) string {
	if appErr, ok := errors.AsAppError(err); ok {
		return string(appErr.Code)
	}
	return string(errors.ErrCodeInternal)
}
