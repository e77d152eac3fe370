package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/mainkit/component"
	"github.com/kbukum/mainkit/errors"
	"github.com/kbukum/mainkit/logger"
	"github.com/kbukum/mainkit/observability"
	"github.com/kbukum/mainkit/resilience"
	"github.com/kbukum/mainkit/version"
)

// RegistrationMode determines when a component is constructed.
type RegistrationMode int

const (
	Eager     RegistrationMode = iota // constructed during Initialize
	Lazy                              // constructed on first Resolve
	Singleton                         // pre-built instance
)

func (m RegistrationMode) String() string {
	switch m {
	case Eager:
		return "eager"
	case Lazy:
		return "lazy"
	case Singleton:
		return "singleton"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Container is an initialized set of components.
type Container interface {
	// ID identifies this container instance in logs and traces.
	ID() string
	// Resolve returns the instance registered under key, constructing it
	// if it is lazy and not yet built.
	Resolve(key string) (interface{}, error)
	// IsOpen reports whether Close has not been called yet.
	IsOpen() bool
	// Close releases the container. Only the first call has any effect.
	Close() error
	// Shutdown is Close with a caller-supplied context for tracing and
	// the component stop deadline.
	Shutdown(ctx context.Context) error
	// Health aggregates the health of lifecycle components.
	Health(ctx context.Context) *observability.ServiceHealth
	// Registrations lists the registered components in registration order.
	Registrations() []RegistrationInfo
}

// RegistrationInfo describes a registered component for introspection.
type RegistrationInfo struct {
	Key         string
	Mode        RegistrationMode
	Initialized bool
	Component   bool
}

// LazyOption configures a lazy registration.
type LazyOption func(*registration)

// WithRetry sets the retry policy used when constructing a lazy component.
func WithRetry(cfg resilience.RetryConfig) LazyOption {
	return func(r *registration) { r.retry = cfg }
}

type registration struct {
	key       string
	mode      RegistrationMode
	ctor      *constructor
	retry     resilience.RetryConfig
	lifecycle bool

	mu       sync.Mutex
	instance interface{}
	built    bool
}

type container struct {
	id           string
	regs         []*registration
	index        map[string]*registration
	components   *component.Registry
	log          *logger.Logger
	metrics      *observability.Metrics
	closeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	built  []*registration
}

func newContainer(id string, regs []*registration, comps []component.Component, log *logger.Logger,
	metrics *observability.Metrics, closeTimeout time.Duration) *container {
	log = log.WithFields(logger.Fields(logger.FieldContainerID, id))
	c := &container{
		id:           id,
		regs:         regs,
		index:        make(map[string]*registration, len(regs)),
		components:   component.NewRegistry(log.WithComponent("component")),
		log:          log,
		metrics:      metrics,
		closeTimeout: closeTimeout,
	}
	for _, reg := range regs {
		c.index[reg.key] = reg
		if reg.built {
			c.built = append(c.built, reg)
		}
	}
	for _, comp := range comps {
		// Names are unique: they were accepted as registration keys.
		_ = c.components.Register(comp)
	}
	metrics.ContainerOpened(context.Background())
	return c
}

func (c *container) ID() string { return c.id }

func (c *container) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

func (c *container) Resolve(key string) (interface{}, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, errors.ContainerClosed("resolve " + key)
	}
	reg := c.index[key]
	c.mu.RUnlock()

	if reg == nil {
		return nil, errors.NotRegistered(key)
	}
	return c.resolveRegistration(context.Background(), reg)
}

// start constructs eager components, starts lifecycle components and runs
// the observers.
func (c *container) start(ctx context.Context, observers []Observer) error {
	for _, reg := range c.regs {
		if reg.mode != Eager {
			continue
		}
		if _, err := c.resolveRegistration(ctx, reg); err != nil {
			return fmt.Errorf("di: eager component %s: %w", reg.key, err)
		}
	}

	if err := c.components.StartAll(ctx, func(name string) {
		c.metrics.ComponentStarted(ctx, name)
	}); err != nil {
		return fmt.Errorf("di: %w", err)
	}

	for n, observe := range observers {
		if err := callObserver(ctx, observe, c); err != nil {
			return fmt.Errorf("di: initialization observer %d: %w", n+1, err)
		}
	}
	return nil
}

func callObserver(ctx context.Context, observe Observer, c Container) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return observe(ctx, c)
}

func (c *container) resolveRegistration(ctx context.Context, reg *registration) (interface{}, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.built {
		return reg.instance, nil
	}

	var (
		instance interface{}
		err      error
	)
	if reg.mode == Lazy {
		instance, err = resilience.Retry(ctx, c.retryConfig(reg), func() (interface{}, error) {
			return reg.ctor.call(ctx, c)
		})
	} else {
		instance, err = reg.ctor.call(ctx, c)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = closeInstance(ctx, instance)
		return nil, errors.ContainerClosed("resolve " + reg.key)
	}
	reg.instance = instance
	reg.built = true
	c.built = append(c.built, reg)
	c.mu.Unlock()

	c.log.WithContext(ctx).Debug("component constructed", logger.Fields(
		logger.FieldKey, reg.key,
		logger.FieldMode, reg.mode.String(),
	))
	return instance, nil
}

// retryConfig keeps the registration's policy but never retries errors that
// another attempt cannot fix.
func (c *container) retryConfig(reg *registration) resilience.RetryConfig {
	cfg := reg.retry
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = resilience.DefaultRetryIf
	}
	cfg.RetryIf = func(err error) bool {
		if errors.IsCode(err, errors.ErrCodeNotRegistered) || errors.IsCode(err, errors.ErrCodeContainerClosed) {
			return false
		}
		return retryIf(err)
	}
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		c.log.Warn("lazy component construction failed, retrying", logger.Fields(
			logger.FieldKey, reg.key,
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"backoff_ms", backoff.Milliseconds(),
		))
		if onRetry != nil {
			onRetry(attempt, err, backoff)
		}
	}
	return cfg
}

func (c *container) Close() error {
	return c.Shutdown(context.Background())
}

func (c *container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	built := append([]*registration(nil), c.built...)
	c.mu.Unlock()

	ctx = logger.ContextWithContainerID(ctx, c.id)
	ctx, phase := observability.StartPhase(ctx, observability.SpanContainerClose, c.metrics,
		attribute.String(observability.AttrContainerID, c.id))

	var errs []error
	if err := c.stopComponents(ctx); err != nil {
		errs = append(errs, err)
	}
	for i := len(built) - 1; i >= 0; i-- {
		reg := built[i]
		if reg.lifecycle {
			continue
		}
		if err := closeInstance(ctx, reg.instance); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", reg.key, err))
		}
	}

	err := stderrors.Join(errs...)
	phase.End(ctx, err)
	c.metrics.ContainerClosed(ctx)

	log := c.log.WithContext(ctx)
	if err != nil {
		log.Error("container closed with errors", logger.ErrorFields("close", err))
	} else {
		log.Info("container closed", logger.DurationFields("close", phase.Duration()))
	}
	return err
}

// stopComponents stops lifecycle components, giving up after closeTimeout.
func (c *container) stopComponents(ctx context.Context) error {
	if c.components.Len() == 0 {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(ctx, c.closeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.components.StopAll(stopCtx) }()

	select {
	case err := <-done:
		return err
	case <-stopCtx.Done():
		return fmt.Errorf("component shutdown did not finish within %s: %w", c.closeTimeout, stopCtx.Err())
	}
}

func (c *container) Health(ctx context.Context) *observability.ServiceHealth {
	h := observability.NewServiceHealth(c.id, version.Get().Version)
	if !c.IsOpen() {
		h.Status = observability.HealthStatusDown
		return h
	}
	for _, ch := range c.components.HealthAll(ctx) {
		h.AddComponent(observability.Health{
			Name:    ch.Name,
			Status:  healthStatus(ch.Status),
			Message: ch.Message,
		})
	}
	return h
}

func healthStatus(s component.HealthStatus) observability.HealthStatus {
	switch s {
	case component.StatusHealthy:
		return observability.HealthStatusUp
	case component.StatusDegraded:
		return observability.HealthStatusDegraded
	default:
		return observability.HealthStatusDown
	}
}

func (c *container) Registrations() []RegistrationInfo {
	c.mu.RLock()
	built := make(map[*registration]bool, len(c.built))
	for _, reg := range c.built {
		built[reg] = true
	}
	c.mu.RUnlock()

	result := make([]RegistrationInfo, 0, len(c.regs))
	for _, reg := range c.regs {
		result = append(result, RegistrationInfo{
			Key:         reg.key,
			Mode:        reg.mode,
			Initialized: built[reg],
			Component:   reg.lifecycle,
		})
	}
	return result
}
