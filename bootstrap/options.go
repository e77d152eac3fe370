package bootstrap

import (
	"io"
	"os"
	"time"

	"github.com/kbukum/mainkit/config"
	"github.com/kbukum/mainkit/di"
	"github.com/kbukum/mainkit/logger"
	"github.com/kbukum/mainkit/observability"
)

// Option configures a Run.
type Option func(*runOptions)

type runOptions struct {
	initializer  *di.Initializer
	ready        []ReadyFunc
	logger       *logger.Logger
	metrics      *observability.Metrics
	summary      io.Writer
	closeTimeout time.Duration
}

func resolveOptions(opts []Option) *runOptions {
	o := &runOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.Get("bootstrap")
	}
	return o
}

// WithInitializer sets the initializer Run builds the container from. Without
// it Run uses di.NewDefaultInitializer. An initializer can only be used once.
func WithInitializer(init *di.Initializer) Option {
	return func(o *runOptions) {
		o.initializer = init
	}
}

// WithReadyCallback adds a callback run once the container is live. Callbacks
// run in the order given; the first failure ends the run.
func WithReadyCallback(fn ReadyFunc) Option {
	return func(o *runOptions) {
		if fn != nil {
			o.ready = append(o.ready, fn)
		}
	}
}

// WithLogger sets the logger for the run. Defaults to the "bootstrap" logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *runOptions) {
		o.logger = l
	}
}

// WithMetrics records run metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *runOptions) {
		o.metrics = m
	}
}

// WithSummary writes the startup summary to w once the container is live.
func WithSummary(w io.Writer) Option {
	return func(o *runOptions) {
		o.summary = w
	}
}

// WithCloseTimeout bounds how long closing the container may take.
func WithCloseTimeout(d time.Duration) Option {
	return func(o *runOptions) {
		o.closeTimeout = d
	}
}

// FromConfig returns the options described by cfg.Bootstrap. The summary,
// when enabled, goes to out or to stdout if out is nil.
func FromConfig(cfg *config.ServiceConfig, out io.Writer) []Option {
	opts := []Option{WithCloseTimeout(cfg.Bootstrap.CloseTimeout)}
	if cfg.Bootstrap.Summary {
		if out == nil {
			out = os.Stdout
		}
		opts = append(opts, WithSummary(out))
	}
	return opts
}
