package component

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/mainkit/logger"
)

type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

func newTestRegistry() *Registry {
	return NewRegistry(logger.Nop())
}

func TestNewRegistry_DefaultLogger(t *testing.T) {
	r := NewRegistry(nil)
	if r == nil || r.log == nil {
		t.Fatal("expected registry with a logger")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry()
	if err := r.Register(&mockComponent{name: "store"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	err := r.Register(&mockComponent{name: "store"})
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Errorf("expected duplicate error, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 component, got %d", r.Len())
	}
}

func TestGet(t *testing.T) {
	r := newTestRegistry()
	c := &mockComponent{name: "store"}
	_ = r.Register(c)

	if r.Get("store") != c {
		t.Error("expected registered component")
	}
	if r.Get("missing") != nil {
		t.Error("expected nil for unknown component")
	}
}

func TestStartAll(t *testing.T) {
	r := newTestRegistry()
	var order []string
	for _, name := range []string{"store", "cache", "worker"} {
		_ = r.Register(&mockComponent{name: name, startOrder: &order})
	}

	var notified []string
	if err := r.StartAll(context.Background(), func(name string) { notified = append(notified, name) }); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}

	want := []string{"store", "cache", "worker"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("start order = %v, want %v", order, want)
	}
	if fmt.Sprint(notified) != fmt.Sprint(want) {
		t.Errorf("onStarted calls = %v, want %v", notified, want)
	}

	// A second StartAll does not restart anything.
	if err := r.StartAll(context.Background(), nil); err != nil {
		t.Fatalf("second StartAll failed: %v", err)
	}
	if len(order) != 3 {
		t.Errorf("expected no restarts, got %v", order)
	}
}

func TestStartAllError(t *testing.T) {
	r := newTestRegistry()
	var stopOrder []string
	boom := errors.New("connection refused")
	_ = r.Register(&mockComponent{name: "store", stopOrder: &stopOrder})
	_ = r.Register(&mockComponent{name: "cache", startErr: boom, stopOrder: &stopOrder})
	_ = r.Register(&mockComponent{name: "worker", stopOrder: &stopOrder})

	err := r.StartAll(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	if !strings.Contains(err.Error(), "cache") {
		t.Errorf("expected component name in error, got %q", err.Error())
	}

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if fmt.Sprint(stopOrder) != "[store]" {
		t.Errorf("only started components should stop, got %v", stopOrder)
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := newTestRegistry()
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		_ = r.Register(&mockComponent{name: name, stopOrder: &order})
	}
	_ = r.StartAll(context.Background(), nil)

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if fmt.Sprint(order) != "[c b a]" {
		t.Errorf("stop order = %v, want [c b a]", order)
	}

	order = nil
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("second StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected no stops on second StopAll, got %v", order)
	}
}

func TestStopAllWithErrors(t *testing.T) {
	r := newTestRegistry()
	var order []string
	errA := errors.New("a failed")
	errC := errors.New("c failed")
	_ = r.Register(&mockComponent{name: "a", stopErr: errA, stopOrder: &order})
	_ = r.Register(&mockComponent{name: "b", stopOrder: &order})
	_ = r.Register(&mockComponent{name: "c", stopErr: errC, stopOrder: &order})
	_ = r.StartAll(context.Background(), nil)

	err := r.StopAll(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errC) {
		t.Errorf("expected both stop errors joined, got %v", err)
	}
	if len(order) != 3 {
		t.Errorf("expected every component stopped despite errors, got %v", order)
	}
}

func TestHealthAll(t *testing.T) {
	r := newTestRegistry()
	_ = r.Register(&mockComponent{name: "store", health: Health{Name: "store", Status: StatusHealthy}})
	_ = r.Register(&mockComponent{name: "cache", health: Health{Name: "cache", Status: StatusDegraded}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Status != StatusDegraded {
		t.Errorf("expected degraded cache, got %s", results[1].Status)
	}
	if len(r.All()) != 2 {
		t.Errorf("expected All to list both components")
	}
}

func TestFunc(t *testing.T) {
	var started, stopped bool
	f := &Func{
		ComponentName: "fn",
		StartFn:       func(context.Context) error { started = true; return nil },
		StopFn:        func(context.Context) error { stopped = true; return nil },
	}
	ctx := context.Background()

	if f.Name() != "fn" {
		t.Errorf("unexpected name %q", f.Name())
	}
	if err := f.Start(ctx); err != nil || !started {
		t.Errorf("expected StartFn to run, err=%v", err)
	}
	if err := f.Stop(ctx); err != nil || !stopped {
		t.Errorf("expected StopFn to run, err=%v", err)
	}
	if h := f.Health(ctx); h.Status != StatusHealthy || h.Name != "fn" {
		t.Errorf("expected healthy, got %+v", h)
	}

	f.HealthFn = func(context.Context) error { return errors.New("lagging") }
	if h := f.Health(ctx); h.Status != StatusUnhealthy || h.Message != "lagging" {
		t.Errorf("expected unhealthy with message, got %+v", h)
	}
}

func TestFunc_NilFunctions(t *testing.T) {
	f := &Func{ComponentName: "empty"}
	if err := f.Start(context.Background()); err != nil {
		t.Errorf("expected nil start error, got %v", err)
	}
	if err := f.Stop(context.Background()); err != nil {
		t.Errorf("expected nil stop error, got %v", err)
	}
}
