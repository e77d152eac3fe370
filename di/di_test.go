package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/mainkit/component"
	"github.com/kbukum/mainkit/errors"
	"github.com/kbukum/mainkit/logger"
	"github.com/kbukum/mainkit/observability"
	"github.com/kbukum/mainkit/resilience"
)

func newTestInitializer(opts ...Option) *Initializer {
	return NewInitializer(append([]Option{WithLogger(logger.Nop())}, opts...)...)
}

func mustInitialize(t *testing.T, init *Initializer) Container {
	t.Helper()
	c, err := init.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2,
	}
}

type closeRecorder struct {
	name  string
	order *[]string
	err   error
}

func (r *closeRecorder) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

type ctxCloser struct{ closed bool }

func (c *ctxCloser) Close(context.Context) error { c.closed = true; return nil }

type plainCloser struct{ closed bool }

func (c *plainCloser) Close() { c.closed = true }

type testComponent struct {
	component.Func
	order *[]string
}

func newTestComponent(name string, order *[]string) *testComponent {
	tc := &testComponent{order: order}
	tc.ComponentName = name
	tc.StartFn = func(context.Context) error {
		*order = append(*order, "start:"+name)
		return nil
	}
	tc.StopFn = func(context.Context) error {
		*order = append(*order, "stop:"+name)
		return nil
	}
	return tc
}

func TestRegisterAndResolve(t *testing.T) {
	c := mustInitialize(t, newTestInitializer().
		Register("greeting", func() string { return "hello" }).
		RegisterSingleton("answer", 42).
		RegisterEager("eager", func() (string, error) { return "built", nil }))

	tests := []struct {
		key  string
		want interface{}
	}{
		{"greeting", "hello"},
		{"answer", 42},
		{"eager", "built"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := c.Resolve(tt.key)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestResolveNotRegistered(t *testing.T) {
	c := mustInitialize(t, newTestInitializer())
	_, err := c.Resolve("nonexistent")
	if !errors.IsCode(err, errors.ErrCodeNotRegistered) {
		t.Fatalf("expected NOT_REGISTERED, got %v", err)
	}
	if !strings.Contains(err.Error(), "nonexistent") {
		t.Errorf("expected key in error, got %q", err.Error())
	}
}

func TestEagerConstructedDuringInitialize(t *testing.T) {
	var calls int32
	init := newTestInitializer().RegisterEager("svc", func() int {
		return int(atomic.AddInt32(&calls, 1))
	})
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("constructor must not run at registration")
	}

	c := mustInitialize(t, init)
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected eager constructor to run once during Initialize, ran %d", calls)
	}
	_, _ = c.Resolve("svc")
	_, _ = c.Resolve("svc")
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected cached eager instance, constructor ran %d times", calls)
	}
}

func TestEagerResolvesLaterEagerOnDemand(t *testing.T) {
	c := mustInitialize(t, newTestInitializer().
		RegisterEager("a", func(c Container) (string, error) {
			b, err := Resolve[string](c, "b")
			return "a+" + b, err
		}).
		RegisterEager("b", func() string { return "b" }))

	got := MustResolve[string](c, "a")
	if got != "a+b" {
		t.Errorf("expected a+b, got %q", got)
	}
}

func TestLazyConstructedOnFirstResolve(t *testing.T) {
	var calls int32
	c := mustInitialize(t, newTestInitializer().RegisterLazy("svc", func() int {
		return int(atomic.AddInt32(&calls, 1))
	}))
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatal("lazy constructor must not run during Initialize")
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Resolve("svc")
		}()
	}
	wg.Wait()
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected lazy constructor to run once, ran %d", calls)
	}
}

func TestLazyRetry(t *testing.T) {
	var calls int32
	c := mustInitialize(t, newTestInitializer().RegisterLazy("flaky", func() (string, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return "", fmt.Errorf("not yet")
		}
		return "ok", nil
	}, WithRetry(fastRetry(5))))

	got, err := c.Resolve("flaky")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got != "ok" || atomic.LoadInt32(&calls) != 3 {
		t.Errorf("got %v after %d calls", got, calls)
	}
}

func TestLazyFailureNotCached(t *testing.T) {
	fail := true
	c := mustInitialize(t, newTestInitializer(WithDefaultRetry(fastRetry(1))).
		RegisterLazy("svc", func() (string, error) {
			if fail {
				return "", fmt.Errorf("unavailable")
			}
			return "up", nil
		}))

	if _, err := c.Resolve("svc"); err == nil {
		t.Fatal("expected first resolve to fail")
	}
	fail = false
	got, err := c.Resolve("svc")
	if err != nil || got != "up" {
		t.Errorf("expected retry on next resolve, got %v, %v", got, err)
	}
}

func TestLazyNotRegisteredIsNotRetried(t *testing.T) {
	var calls int32
	c := mustInitialize(t, newTestInitializer().RegisterLazy("svc", func(c Container) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return c.Resolve("missing")
	}, WithRetry(fastRetry(5))))

	_, err := c.Resolve("svc")
	if !errors.IsCode(err, errors.ErrCodeNotRegistered) {
		t.Fatalf("expected NOT_REGISTERED, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestConstructorSignatures(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "from-ctx")

	init := newTestInitializer().
		RegisterSingleton("base", "base").
		RegisterEager("plain", func() string { return "plain" }).
		RegisterEager("with-ctx", func(ctx context.Context) (string, error) {
			return ctx.Value(ctxKey{}).(string), nil
		}).
		RegisterEager("with-container", func(c Container) (string, error) {
			return Resolve[string](c, "base")
		}).
		RegisterEager("with-both", func(ctx context.Context, c Container) (string, error) {
			base, err := Resolve[string](c, "base")
			return ctx.Value(ctxKey{}).(string) + "/" + base, err
		})

	c, err := init.Initialize(ctx)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer c.Close()

	want := map[string]string{
		"plain":          "plain",
		"with-ctx":       "from-ctx",
		"with-container": "base",
		"with-both":      "from-ctx/base",
	}
	for key, w := range want {
		if got := MustResolve[string](c, key); got != w {
			t.Errorf("%s = %q, want %q", key, got, w)
		}
	}
}

func TestInvalidRegistrations(t *testing.T) {
	tests := []struct {
		name    string
		init    func(*Initializer)
		wantErr string
	}{
		{"not a function", func(i *Initializer) { i.RegisterEager("x", "nope") }, "constructor must be a function"},
		{"nil function", func(i *Initializer) { i.RegisterLazy("x", (func() int)(nil)) }, "constructor must be a function"},
		{"bad parameter", func(i *Initializer) { i.RegisterEager("x", func(int) int { return 0 }) }, "unsupported type int"},
		{"bad results", func(i *Initializer) { i.RegisterEager("x", func() (int, int) { return 0, 0 }) }, "second result must be error"},
		{"no results", func(i *Initializer) { i.RegisterEager("x", func() {}) }, "must return either"},
		{"variadic", func(i *Initializer) { i.RegisterEager("x", func(...Container) int { return 0 }) }, "variadic"},
		{"empty key", func(i *Initializer) { i.RegisterSingleton("", 1) }, "key must not be empty"},
		{"duplicate", func(i *Initializer) { i.RegisterSingleton("x", 1).RegisterSingleton("x", 2) }, "duplicate registration for x"},
		{"nil component", func(i *Initializer) { i.RegisterComponent(nil) }, "nil component"},
		{"nil observer", func(i *Initializer) { i.OnInitialized(nil) }, "nil observer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			init := newTestInitializer()
			tt.init(init)
			if err := init.Err(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Err() = %v, want %q", err, tt.wantErr)
			}
			c, err := init.Initialize(context.Background())
			if err == nil || c != nil {
				t.Fatalf("expected Initialize to fail, got %v, %v", c, err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q in %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestInitializeTwice(t *testing.T) {
	init := newTestInitializer()
	mustInitialize(t, init)

	_, err := init.Initialize(context.Background())
	if !errors.IsCode(err, errors.ErrCodeAlreadyInitialized) {
		t.Fatalf("expected ALREADY_INITIALIZED, got %v", err)
	}

	init.RegisterSingleton("late", 1)
	if err := init.Err(); err == nil || !strings.Contains(err.Error(), "after Initialize") {
		t.Errorf("expected late registration error, got %v", err)
	}
}

func TestEagerFailureClosesPartialContainer(t *testing.T) {
	var order []string
	boom := fmt.Errorf("database unreachable")
	init := newTestInitializer().
		RegisterSingleton("first", &closeRecorder{name: "first", order: &order}).
		RegisterEager("second", func() *closeRecorder { return &closeRecorder{name: "second", order: &order} }).
		RegisterEager("third", func() (*closeRecorder, error) { return nil, boom })

	c, err := init.Initialize(context.Background())
	if c != nil {
		t.Fatal("expected no container on failure")
	}
	if !stderrors.Is(err, boom) {
		t.Fatalf("expected cause to be reachable, got %v", err)
	}
	if !strings.Contains(err.Error(), "third") {
		t.Errorf("expected failing key in error, got %q", err.Error())
	}
	if fmt.Sprint(order) != "[second first]" {
		t.Errorf("expected built instances closed in reverse, got %v", order)
	}
}

func TestConstructorPanic(t *testing.T) {
	_, err := newTestInitializer().
		RegisterEager("bad", func() int { panic("kaboom") }).
		Initialize(context.Background())
	if err == nil || !strings.Contains(err.Error(), "constructor panicked: kaboom") {
		t.Fatalf("expected recovered panic, got %v", err)
	}
}

func TestCloseIdempotentAndOrdered(t *testing.T) {
	var order []string
	cc := &ctxCloser{}
	pc := &plainCloser{}
	errB := fmt.Errorf("b failed")

	init := newTestInitializer().
		RegisterSingleton("a", &closeRecorder{name: "a", order: &order}).
		RegisterEager("b", func() *closeRecorder { return &closeRecorder{name: "b", order: &order, err: errB} }).
		RegisterLazy("c", func() *closeRecorder { return &closeRecorder{name: "c", order: &order} }).
		RegisterLazy("never", func() *closeRecorder { return &closeRecorder{name: "never", order: &order} }).
		RegisterSingleton("ctx", cc).
		RegisterSingleton("plain", pc)

	c, err := init.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := c.Resolve("c"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !c.IsOpen() {
		t.Fatal("expected open container")
	}

	err = c.Close()
	if !stderrors.Is(err, errB) {
		t.Errorf("expected close error to be reported, got %v", err)
	}
	if c.IsOpen() {
		t.Error("expected closed container")
	}
	// Singletons a, ctx, plain are adopted first, then eager b, then lazy c.
	if fmt.Sprint(order) != "[c b a]" {
		t.Errorf("close order = %v, want [c b a]", order)
	}
	if !cc.closed || !pc.closed {
		t.Error("expected Close(ctx) and Close() variants to be called")
	}

	if err := c.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
	if len(order) != 3 {
		t.Errorf("instances closed more than once: %v", order)
	}

	_, err = c.Resolve("a")
	if !errors.IsCode(err, errors.ErrCodeContainerClosed) {
		t.Errorf("expected CONTAINER_CLOSED after close, got %v", err)
	}
}

func TestComponentsLifecycle(t *testing.T) {
	var order []string
	c := mustInitialize(t, newTestInitializer().
		RegisterComponent(newTestComponent("store", &order)).
		RegisterComponent(newTestComponent("worker", &order)))

	if fmt.Sprint(order) != "[start:store start:worker]" {
		t.Errorf("unexpected start order %v", order)
	}
	if _, ok := TryResolve[component.Component](c, "store"); !ok {
		t.Error("expected component resolvable by name")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	want := "[start:store start:worker stop:worker stop:store]"
	if fmt.Sprint(order) != want {
		t.Errorf("lifecycle order = %v, want %v", order, want)
	}
}

func TestComponentStartFailure(t *testing.T) {
	var order []string
	bad := newTestComponent("bad", &order)
	bad.StartFn = func(context.Context) error { return fmt.Errorf("port in use") }

	_, err := newTestInitializer().
		RegisterComponent(newTestComponent("store", &order)).
		RegisterComponent(bad).
		RegisterComponent(newTestComponent("worker", &order)).
		Initialize(context.Background())

	if err == nil || !strings.Contains(err.Error(), "port in use") {
		t.Fatalf("expected start failure, got %v", err)
	}
	if fmt.Sprint(order) != "[start:store stop:store]" {
		t.Errorf("expected started components stopped, got %v", order)
	}
}

func TestCloseTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	slow := &component.Func{
		ComponentName: "slow",
		StopFn: func(context.Context) error {
			<-release
			return nil
		},
	}
	c, err := newTestInitializer(WithCloseTimeout(20 * time.Millisecond)).
		RegisterComponent(slow).
		Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	start := time.Now()
	err = c.Close()
	if err == nil || !strings.Contains(err.Error(), "did not finish") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Close should return once the timeout elapses")
	}
	if c.IsOpen() {
		t.Error("container must be closed even when shutdown times out")
	}
}

func TestObserversReceiveArguments(t *testing.T) {
	var got []string
	var sawOpen bool
	c := mustInitialize(t, newTestInitializer().
		RegisterSingleton(CommandLineArgumentsKey, []string{"a", "b"}).
		OnInitialized(func(ctx context.Context, c Container) error {
			got = MustResolve[[]string](c, CommandLineArgumentsKey)
			sawOpen = c.IsOpen()
			return nil
		}))

	if fmt.Sprint(got) != "[a b]" {
		t.Errorf("observer saw %v, want [a b]", got)
	}
	if !sawOpen {
		t.Error("observer should see an open container")
	}
	if c.ID() == "" {
		t.Error("expected a container id")
	}
}

func TestObserverFailure(t *testing.T) {
	var order []string
	ran := 0
	_, err := newTestInitializer().
		RegisterSingleton("res", &closeRecorder{name: "res", order: &order}).
		OnInitialized(func(context.Context, Container) error { ran++; return fmt.Errorf("refused") }).
		OnInitialized(func(context.Context, Container) error { ran++; return nil }).
		Initialize(context.Background())

	if err == nil || !strings.Contains(err.Error(), "refused") {
		t.Fatalf("expected observer error, got %v", err)
	}
	if ran != 1 {
		t.Errorf("expected observers to stop at the first failure, ran %d", ran)
	}
	if fmt.Sprint(order) != "[res]" {
		t.Errorf("expected partial container closed, got %v", order)
	}
}

func TestObserverPanic(t *testing.T) {
	_, err := newTestInitializer().
		OnInitialized(func(context.Context, Container) error { panic("observer bug") }).
		Initialize(context.Background())
	if err == nil || !strings.Contains(err.Error(), "observer panicked") {
		t.Fatalf("expected recovered observer panic, got %v", err)
	}
}

func TestRegistrations(t *testing.T) {
	var order []string
	c := mustInitialize(t, newTestInitializer().
		RegisterSingleton("s", 1).
		RegisterEager("e", func() int { return 2 }).
		RegisterLazy("l", func() int { return 3 }).
		RegisterComponent(newTestComponent("comp", &order)))

	regs := c.Registrations()
	want := []RegistrationInfo{
		{Key: "s", Mode: Singleton, Initialized: true},
		{Key: "e", Mode: Eager, Initialized: true},
		{Key: "l", Mode: Lazy, Initialized: false},
		{Key: "comp", Mode: Singleton, Initialized: true, Component: true},
	}
	if len(regs) != len(want) {
		t.Fatalf("expected %d registrations, got %d", len(want), len(regs))
	}
	for i := range want {
		if regs[i] != want[i] {
			t.Errorf("registration %d = %+v, want %+v", i, regs[i], want[i])
		}
	}

	_, _ = c.Resolve("l")
	if !c.Registrations()[2].Initialized {
		t.Error("expected lazy registration initialized after resolve")
	}
}

func TestRegistrationModeString(t *testing.T) {
	tests := map[RegistrationMode]string{Eager: "eager", Lazy: "lazy", Singleton: "singleton", RegistrationMode(9): "mode(9)"}
	for m, want := range tests {
		if m.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(m), m.String(), want)
		}
	}
}

func TestHealth(t *testing.T) {
	var order []string
	sick := newTestComponent("sick", &order)
	sick.HealthFn = func(context.Context) error { return fmt.Errorf("lagging") }

	c, err := newTestInitializer().
		RegisterComponent(newTestComponent("ok", &order)).
		RegisterComponent(sick).
		Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	h := c.Health(context.Background())
	if h.Service != c.ID() {
		t.Errorf("expected health keyed by container id")
	}
	if h.Status != observability.HealthStatusDown || len(h.Components) != 2 {
		t.Errorf("unexpected health %+v", h)
	}
	if h.Components[1].Message != "lagging" {
		t.Errorf("expected component message, got %q", h.Components[1].Message)
	}

	_ = c.Close()
	if c.Health(context.Background()).Status != observability.HealthStatusDown {
		t.Error("closed container must report down")
	}
}

func TestGenericResolve(t *testing.T) {
	c := mustInitialize(t, newTestInitializer().RegisterSingleton("n", 7))

	if n, err := Resolve[int](c, "n"); err != nil || n != 7 {
		t.Errorf("Resolve[int] = %v, %v", n, err)
	}
	if _, err := Resolve[string](c, "n"); err == nil || !strings.Contains(err.Error(), "expected string") {
		t.Errorf("expected type mismatch error, got %v", err)
	}
	_, err := Resolve[int](c, "missing")
	if !errors.IsCode(err, errors.ErrCodeNotRegistered) {
		t.Errorf("expected NOT_REGISTERED through wrapping, got %v", err)
	}
	if _, ok := TryResolve[int](c, "missing"); ok {
		t.Error("TryResolve should report false for missing key")
	}
	if v, ok := TryResolve[int](c, "n"); !ok || v != 7 {
		t.Errorf("TryResolve = %v, %v", v, ok)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustResolve should panic for a missing key")
		}
	}()
	MustResolve[int](c, "missing")
}

type keyMarker struct{}

func TestKeyOf(t *testing.T) {
	if got := KeyOf[*keyMarker](); got != "*di.keyMarker" {
		t.Errorf("KeyOf = %q", got)
	}
	if got := KeyOf[[]string](); got != "[]string" {
		t.Errorf("KeyOf = %q", got)
	}
	if Keys.CommandLineArguments != "commandLineArguments" {
		t.Errorf("unexpected arguments key %q", Keys.CommandLineArguments)
	}
}

func TestDefaultInitializerFactory(t *testing.T) {
	var built int
	prev := SetDefaultInitializerFactory(func() *Initializer {
		built++
		return newTestInitializer().RegisterSingleton("env", "custom")
	})
	defer SetDefaultInitializerFactory(prev)

	c := mustInitialize(t, NewDefaultInitializer())
	if built != 1 {
		t.Errorf("expected factory to be used once, got %d", built)
	}
	if MustResolve[string](c, "env") != "custom" {
		t.Error("expected component from custom factory")
	}

	SetDefaultInitializerFactory(nil)
	if NewDefaultInitializer() == nil {
		t.Error("nil factory should restore the built-in default")
	}
}

func TestResolveAfterCloseDuringLazyConstruction(t *testing.T) {
	var order []string
	started := make(chan struct{})
	proceed := make(chan struct{})

	c, err := newTestInitializer().RegisterLazy("slow", func() *closeRecorder {
		close(started)
		<-proceed
		return &closeRecorder{name: "slow", order: &order}
	}).Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Resolve("slow")
		done <- err
	}()

	<-started
	_ = c.Close()
	close(proceed)

	if err := <-done; !errors.IsCode(err, errors.ErrCodeContainerClosed) {
		t.Errorf("expected CONTAINER_CLOSED, got %v", err)
	}
	if fmt.Sprint(order) != "[slow]" {
		t.Errorf("instance built after close must be closed, got %v", order)
	}
}
