package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/mainkit/component"
	"github.com/kbukum/mainkit/errors"
	"github.com/kbukum/mainkit/logger"
	"github.com/kbukum/mainkit/observability"
	"github.com/kbukum/mainkit/resilience"
)

// DefaultCloseTimeout bounds the component stop phase of Close.
const DefaultCloseTimeout = 15 * time.Second

// Observer is called once the container is built and its components are
// started, before Initialize returns.
type Observer func(ctx context.Context, c Container) error

// Initializer declares the components of a container. It is a single-use
// builder: Initialize may succeed at most once.
//
// Registration methods return the receiver for chaining. Invalid
// registrations are recorded and reported by Initialize.
type Initializer struct {
	mu           sync.Mutex
	regs         []*registration
	index        map[string]*registration
	components   []component.Component
	observers    []Observer
	errs         []error
	used         bool
	log          *logger.Logger
	metrics      *observability.Metrics
	closeTimeout time.Duration
	retry        resilience.RetryConfig
}

// Option configures an Initializer.
type Option func(*Initializer)

// WithLogger sets the logger used by the initializer and its container.
func WithLogger(l *logger.Logger) Option {
	return func(i *Initializer) {
		if l != nil {
			i.log = l
		}
	}
}

// WithMetrics records container metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(i *Initializer) { i.metrics = m }
}

// WithCloseTimeout bounds how long component shutdown may take on Close.
func WithCloseTimeout(d time.Duration) Option {
	return func(i *Initializer) {
		if d > 0 {
			i.closeTimeout = d
		}
	}
}

// WithDefaultRetry sets the retry policy for lazy components registered
// without their own.
func WithDefaultRetry(cfg resilience.RetryConfig) Option {
	return func(i *Initializer) { i.retry = cfg }
}

// NewInitializer creates an empty initializer.
func NewInitializer(opts ...Option) *Initializer {
	i := &Initializer{
		index:        make(map[string]*registration),
		log:          logger.Get("di"),
		closeTimeout: DefaultCloseTimeout,
		retry:        resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var (
	factoryMu      sync.RWMutex
	defaultFactory = func() *Initializer { return NewInitializer() }
)

// NewDefaultInitializer returns an initializer from the current default
// factory.
func NewDefaultInitializer() *Initializer {
	factoryMu.RLock()
	f := defaultFactory
	factoryMu.RUnlock()
	return f()
}

// SetDefaultInitializerFactory replaces the factory used by
// NewDefaultInitializer and returns the previous one. A nil factory restores
// the built-in default.
func SetDefaultInitializerFactory(f func() *Initializer) func() *Initializer {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	prev := defaultFactory
	if f == nil {
		f = func() *Initializer { return NewInitializer() }
	}
	defaultFactory = f
	return prev
}

// Register registers a lazily constructed component.
func (i *Initializer) Register(key string, ctor interface{}) *Initializer {
	return i.RegisterLazy(key, ctor)
}

// RegisterLazy registers a component constructed on first Resolve. Failed
// constructions are retried with the initializer's retry policy unless
// overridden with WithRetry; a failure is not cached.
func (i *Initializer) RegisterLazy(key string, ctor interface{}, opts ...LazyOption) *Initializer {
	c, err := newConstructor(ctor)
	if err != nil {
		return i.fail(fmt.Errorf("di: invalid constructor for %s: %w", key, err))
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	reg := &registration{key: key, mode: Lazy, ctor: c, retry: i.retry}
	for _, opt := range opts {
		opt(reg)
	}
	i.add(reg)
	return i
}

// RegisterEager registers a component constructed during Initialize, in
// registration order.
func (i *Initializer) RegisterEager(key string, ctor interface{}) *Initializer {
	c, err := newConstructor(ctor)
	if err != nil {
		return i.fail(fmt.Errorf("di: invalid constructor for %s: %w", key, err))
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.add(&registration{key: key, mode: Eager, ctor: c})
	return i
}

// RegisterSingleton registers a pre-built instance.
func (i *Initializer) RegisterSingleton(key string, instance interface{}) *Initializer {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.add(&registration{key: key, mode: Singleton, instance: instance, built: true})
	return i
}

// RegisterComponent registers a lifecycle component as a singleton under
// its name. It is started during Initialize and stopped during Close.
func (i *Initializer) RegisterComponent(c component.Component) *Initializer {
	if c == nil {
		return i.fail(stderrors.New("di: nil component"))
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.add(&registration{key: c.Name(), mode: Singleton, instance: c, built: true, lifecycle: true}) {
		i.components = append(i.components, c)
	}
	return i
}

// OnInitialized registers an observer of container startup. Observers run
// in registration order; the first error fails Initialize.
func (i *Initializer) OnInitialized(fn Observer) *Initializer {
	if fn == nil {
		return i.fail(stderrors.New("di: nil observer"))
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.observers = append(i.observers, fn)
	return i
}

// Err returns the registration errors recorded so far.
func (i *Initializer) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return stderrors.Join(i.errs...)
}

// Initialize builds the container: singletons are adopted, eager components
// constructed, lifecycle components started and observers notified, in that
// order. On any failure the partially built container is closed and the
// error returned. A second call returns an ALREADY_INITIALIZED error.
func (i *Initializer) Initialize(ctx context.Context) (Container, error) {
	i.mu.Lock()
	if i.used {
		i.mu.Unlock()
		return nil, errors.AlreadyInitialized()
	}
	i.used = true
	if err := stderrors.Join(i.errs...); err != nil {
		i.mu.Unlock()
		return nil, err
	}
	c := newContainer(uuid.NewString(), i.regs, i.components, i.log, i.metrics, i.closeTimeout)
	observers := append([]Observer(nil), i.observers...)
	i.mu.Unlock()

	ctx = logger.ContextWithContainerID(ctx, c.id)
	ctx, phase := observability.StartPhase(ctx, observability.SpanContainerInitialize, i.metrics,
		attribute.String(observability.AttrContainerID, c.id))
	log := c.log.WithContext(ctx)

	err := c.start(ctx, observers)
	phase.End(ctx, err)
	if err != nil {
		log.Error("container initialization failed", logger.ErrorFields("initialize", err))
		if closeErr := c.Close(); closeErr != nil {
			err = stderrors.Join(err, fmt.Errorf("closing partial container: %w", closeErr))
		}
		return nil, err
	}

	log.Info("container initialized", logger.Fields(
		"registrations", len(c.regs),
		"components", c.components.Len(),
		logger.FieldDuration, phase.Duration().Milliseconds(),
	))
	return c, nil
}

// add records reg and reports whether it was accepted. The caller holds i.mu.
func (i *Initializer) add(reg *registration) bool {
	switch {
	case reg.key == "":
		i.errs = append(i.errs, stderrors.New("di: registration key must not be empty"))
	case i.used:
		i.errs = append(i.errs, fmt.Errorf("di: cannot register %s after Initialize", reg.key))
	case i.index[reg.key] != nil:
		i.errs = append(i.errs, fmt.Errorf("di: duplicate registration for %s", reg.key))
	default:
		i.regs = append(i.regs, reg)
		i.index[reg.key] = reg
		return true
	}
	return false
}

func (i *Initializer) fail(err error) *Initializer {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.errs = append(i.errs, err)
	return i
}
