package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/mainkit/di"
	"github.com/kbukum/mainkit/errors"
	"github.com/kbukum/mainkit/logger"
	"github.com/kbukum/mainkit/observability"
)

// Main is the marker component Run registers in every container. Resolving
// it after Initialize proves the container is wired.
type Main struct {
	containerID string
	args        []string
}

// ContainerID returns the id of the container that built m.
func (m *Main) ContainerID() string { return m.containerID }

// Arguments returns a copy of the arguments m was built with.
func (m *Main) Arguments() []string { return cloneArgs(m.args) }

func newMain(c di.Container) (*Main, error) {
	args, err := di.Resolve[[]string](c, di.CommandLineArgumentsKey)
	if err != nil {
		return nil, err
	}
	return &Main{containerID: c.ID(), args: args}, nil
}

// MainKey is the registration key of the marker component.
var MainKey = di.KeyOf[*Main]()

var (
	argsMu   sync.RWMutex
	lastArgs = []string{}
)

// CommandLineArguments returns a copy of the arguments passed to the most
// recent Run, or an empty slice before the first one. It is never nil.
func CommandLineArguments() []string {
	argsMu.RLock()
	defer argsMu.RUnlock()
	return cloneArgs(lastArgs)
}

func recordArguments(args []string) {
	argsMu.Lock()
	defer argsMu.Unlock()
	lastArgs = args
}

func cloneArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	return out
}

// RunWithInitializer is Run with WithInitializer(init).
func RunWithInitializer(ctx context.Context, init *di.Initializer, args []string, opts ...Option) error {
	return Run(ctx, args, append([]Option{WithInitializer(init)}, opts...)...)
}

// Run builds a container, verifies it, runs the ready callbacks and closes
// the container before returning. A nil args is treated as empty.
//
// Errors are INITIALIZATION_FAILED when the container could not be built,
// WIRING_FAILED when the marker component cannot be resolved from it and
// CALLBACK_FAILED when a ready callback fails or panics. A failure to close
// the container is joined to the returned error. Concurrent calls must be
// serialized by the caller.
func Run(ctx context.Context, args []string, opts ...Option) (err error) {
	o := resolveOptions(opts)
	args = cloneArgs(args)
	recordArguments(cloneArgs(args))

	runID := uuid.NewString()
	ctx = logger.ContextWithRunID(ctx, runID)
	ctx, phase := observability.StartPhase(ctx, observability.SpanBootstrapRun, o.metrics,
		attribute.String(observability.AttrRunID, runID),
		attribute.Int(observability.AttrArgsCount, len(args)))
	log := o.logger.WithContext(ctx)
	defer func() {
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeFailure
		}
		phase.Span().SetAttributes(attribute.String(observability.AttrOutcome, outcome))
		phase.End(ctx, err)
		o.metrics.RecordRun(ctx, outcome, phase.Duration())
	}()

	log.Info("arguments recorded", logger.Fields(logger.FieldArgsCount, len(args)))

	init := o.initializer
	if init == nil {
		log.Debug("no initializer supplied, using default")
		init = di.NewDefaultInitializer()
	}
	init.RegisterSingleton(di.CommandLineArgumentsKey, args).
		RegisterEager(MainKey, newMain)

	c, initErr := init.Initialize(ctx)
	if initErr != nil {
		log.Error("container initialization failed", logger.ErrorFields("initialize", initErr))
		return errors.InitializationFailed(initErr)
	}

	ctx = logger.ContextWithContainerID(ctx, c.ID())
	phase.Span().SetAttributes(attribute.String(observability.AttrContainerID, c.ID()))
	log = o.logger.WithContext(ctx)
	defer func() {
		if closeErr := closeContainer(ctx, c, o.closeTimeout); closeErr != nil {
			log.Error("container close failed", logger.ErrorFields("close", closeErr))
			err = stderrors.Join(err, closeErr)
		}
	}()

	if err := checkLiveness(ctx, c, o.metrics); err != nil {
		log.Error("liveness check failed", logger.ErrorFields("liveness", err))
		return err
	}
	log.Debug("liveness check passed")

	if o.summary != nil {
		NewSummary(ctx, c, phase.Duration()).Write(o.summary)
	}

	if len(o.ready) > 0 {
		readyCtx, ready := observability.StartPhase(ctx, observability.SpanReadyCallback, o.metrics)
		cbErr := runReady(readyCtx, o.ready, c)
		if cbErr != nil {
			cbErr = errors.CallbackFailed(cbErr)
		}
		ready.End(readyCtx, cbErr)
		if cbErr != nil {
			log.Error("ready callback failed", logger.ErrorFields("ready", cbErr))
			return cbErr
		}
		log.Debug("ready callback finished", logger.DurationFields("ready", ready.Duration()))
	}

	log.Info("run finished", logger.DurationFields("run", phase.Duration()))
	return nil
}

// checkLiveness resolves the marker component from c.
func checkLiveness(ctx context.Context, c di.Container, metrics *observability.Metrics) error {
	ctx, phase := observability.StartPhase(ctx, observability.SpanLivenessCheck, metrics)

	marker, err := di.Resolve[*Main](c, MainKey)
	if err == nil && marker == nil {
		err = fmt.Errorf("%s resolved to nil", MainKey)
	}
	if err != nil {
		err = errors.WiringFailed(MainKey, err)
	}

	phase.End(ctx, err)
	return err
}

// closeContainer closes c if it is still open. The run context's
// cancellation does not cut the close short; timeout, if positive, does.
func closeContainer(ctx context.Context, c di.Container, timeout time.Duration) error {
	if !c.IsOpen() {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := c.Shutdown(ctx); err != nil {
		return fmt.Errorf("bootstrap: closing container: %w", err)
	}
	return nil
}
