package devops

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"aura/internal/devops/health"
	devlog "aura/internal/devops/log"
)

// mockService records lifecycle calls into a shared log.
type mockService struct {
	name    string
	started bool
	calls   *[]string
	startFn func() error
	stopFn  func() error
}

func (m *mockService) Name() string { return m.name }
func (m *mockService) State() ServiceState {
	if m.started {
		return StateRunning
	}
	return StateStopped
}
func (m *mockService) Health(_ context.Context) health.Result {
	return health.Result{Healthy: m.started, Message: m.name}
}
func (m *mockService) Start(_ context.Context) error {
	m.record("start " + m.name)
	if m.startFn != nil {
		return m.startFn()
	}
	m.started = true
	return nil
}
func (m *mockService) Stop(_ context.Context) error {
	m.record("stop " + m.name)
	if m.stopFn != nil {
		return m.stopFn()
	}
	m.started = false
	return nil
}

func (m *mockService) record(call string) {
	if m.calls != nil {
		*m.calls = append(*m.calls, call)
	}
}

func newTestOrchestrator() *Orchestrator {
	return NewOrchestrator(devlog.NewSectionWriter(io.Discard, false).WithErrorWriter(io.Discard))
}

func TestUpStartsInOrder(t *testing.T) {
	var calls []string
	o := newTestOrchestrator()
	o.RegisterServices(
		&mockService{name: "db", calls: &calls},
		&mockService{name: "backend", calls: &calls},
	)

	if err := o.Up(context.Background()); err != nil {
		t.Fatalf("Up() error: %v", err)
	}
	want := []string{"start db", "start backend"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestUpStopsAtFirstFailure(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	o := newTestOrchestrator()
	o.RegisterServices(
		&mockService{name: "db", calls: &calls, startFn: func() error { return boom }},
		&mockService{name: "backend", calls: &calls},
	)

	err := o.Up(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Up() error = %v, want wrapped boom", err)
	}
	if !strings.Contains(err.Error(), "start db") {
		t.Errorf("error %q should name the failing service", err)
	}
	if len(calls) != 1 {
		t.Errorf("calls = %v, backend should not start", calls)
	}
}

func TestDownStopsInReverseAndReportsLastError(t *testing.T) {
	var calls []string
	var errOut bytes.Buffer
	first := errors.New("first")
	o := NewOrchestrator(devlog.NewSectionWriter(io.Discard, false).WithErrorWriter(&errOut))
	o.RegisterServices(
		&mockService{name: "a", calls: &calls},
		&mockService{name: "b", calls: &calls, stopFn: func() error { return first }},
		&mockService{name: "c", calls: &calls},
	)

	err := o.Down(context.Background())
	if !errors.Is(err, first) {
		t.Fatalf("Down() error = %v, want first", err)
	}
	want := []string{"stop c", "stop b", "stop a"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if !strings.Contains(errOut.String(), "Failed to stop b") {
		t.Errorf("error output = %q", errOut.String())
	}
}

func TestStatusReportsEveryService(t *testing.T) {
	o := newTestOrchestrator()
	o.RegisterServices(
		&mockService{name: "a", started: true},
		&mockService{name: "b"},
	)

	statuses := o.Status(context.Background())
	if len(statuses) != 2 {
		t.Fatalf("Status() returned %d entries, want 2", len(statuses))
	}
	if !statuses[0].Healthy || statuses[0].State != StateRunning {
		t.Errorf("status[0] = %+v", statuses[0])
	}
	if statuses[1].Healthy || statuses[1].State != StateStopped {
		t.Errorf("status[1] = %+v", statuses[1])
	}
}

func TestServiceStateString(t *testing.T) {
	if StateHealthy.String() != "healthy" {
		t.Errorf("StateHealthy = %q", StateHealthy.String())
	}
	if ServiceState(42).String() != "unknown(42)" {
		t.Errorf("unknown state = %q", ServiceState(42).String())
	}
}
