package component

import "context"

// Func adapts plain functions to Component. Nil functions are no-ops and a
// nil HealthFn reports healthy.
type Func struct {
	ComponentName string
	StartFn       func(ctx context.Context) error
	StopFn        func(ctx context.Context) error
	HealthFn      func(ctx context.Context) error
}

// Name returns ComponentName.
func (f *Func) Name() string { return f.ComponentName }

// Start calls StartFn.
func (f *Func) Start(ctx context.Context) error {
	if f.StartFn == nil {
		return nil
	}
	return f.StartFn(ctx)
}

// Stop calls StopFn.
func (f *Func) Stop(ctx context.Context) error {
	if f.StopFn == nil {
		return nil
	}
	return f.StopFn(ctx)
}

// Health maps the HealthFn result to a Health value.
func (f *Func) Health(ctx context.Context) Health {
	h := Health{Name: f.ComponentName, Status: StatusHealthy}
	if f.HealthFn == nil {
		return h
	}
	if err := f.HealthFn(ctx); err != nil {
		h.Status = StatusUnhealthy
		h.Message = err.Error()
	}
	return h
}
