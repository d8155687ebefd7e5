package host

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vinayprograms/simhost/config"
	herrors "github.com/vinayprograms/simhost/errors"
	"github.com/vinayprograms/simhost/shutdown"
	"github.com/vinayprograms/simhost/telemetry"
	"github.com/vinayprograms/simhost/timesource"
)

// recordingExporter keeps everything it is given.
type recordingExporter struct {
	mu     sync.Mutex
	events []string
	exits  []telemetry.ExitRecord
	closed bool
}

func (e *recordingExporter) LogEvent(name string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, name)
}

func (e *recordingExporter) LogExit(rec telemetry.ExitRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exits = append(e.exits, rec)
}

func (e *recordingExporter) Flush() error { return nil }

func (e *recordingExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

// keptSpans survives provider shutdown, which would otherwise clear it.
type keptSpans struct {
	*tracetest.InMemoryExporter
}

func (keptSpans) Shutdown(context.Context) error { return nil }

type harness struct {
	rt     *Runtime
	out    bytes.Buffer
	stderr bytes.Buffer
	exp    *recordingExporter
	clock  *timesource.ManualClock
	exits  []int
}

func newHarness(t *testing.T, cfg config.Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		exp:   &recordingExporter{},
		clock: timesource.NewManualClock(1000),
	}
	opts = append([]Option{
		WithOutput(&h.out),
		WithStderr(&h.stderr),
		WithExporter(h.exp),
		WithClock(h.clock),
		WithExit(func(code int) { h.exits = append(h.exits, code) }),
	}, opts...)

	rt, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.rt = rt
	t.Cleanup(func() {
		if rt.stopSignals != nil {
			rt.stopSignals()
		}
	})
	return h
}

func TestNewInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Time.Scale = 0

	_, err := New(cfg)
	if !herrors.Is(err, herrors.ErrCodeInvalidConfig) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestNewAssignsRunID(t *testing.T) {
	a := newHarness(t, config.Default())
	b := newHarness(t, config.Default())
	if a.rt.RunID() == "" || a.rt.RunID() == b.rt.RunID() {
		t.Errorf("expected distinct run ids, got %q and %q", a.rt.RunID(), b.rt.RunID())
	}
}

func TestExitRunsActionsInOrder(t *testing.T) {
	h := newHarness(t, config.Default())
	if err := h.rt.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var calls []string
	h.rt.AtExit("net", func() { calls = append(calls, "net") }, shutdown.PriorityLast, true)
	h.rt.AtExit("save", func() { calls = append(calls, "save") }, shutdown.PriorityNormal, false)
	h.rt.AtExit("restore", func() { calls = append(calls, "restore") }, shutdown.PriorityFirst, true)

	h.rt.Exit()

	want := []string{"restore", "save", "net"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if len(h.exits) != 1 || h.exits[0] != 0 {
		t.Errorf("exit codes = %v, want [0]", h.exits)
	}
	if h.stderr.Len() != 0 {
		t.Errorf("clean exit should print nothing to stderr, got %q", h.stderr.String())
	}
	if !h.exp.closed {
		t.Error("telemetry should be closed on exit")
	}
	// Three actions plus the telemetry flush.
	if len(h.exp.exits) != 4 {
		t.Errorf("expected 4 exit records, got %d", len(h.exp.exits))
	}
	if last := h.exp.exits[len(h.exp.exits)-1]; last.Action != "telemetry" || last.Priority != "very_last" {
		t.Errorf("telemetry flush should run last, got %+v", last)
	}
}

func TestFatalSkipsNonErrorActions(t *testing.T) {
	h := newHarness(t, config.Default())

	var calls []string
	h.rt.AtExit("save", func() { calls = append(calls, "save") }, shutdown.PriorityNormal, false)
	h.rt.AtExit("restore", func() { calls = append(calls, "restore") }, shutdown.PriorityFirst, true)

	h.rt.Fatalf("W_GetNumForName: %s not found", "MAP01")

	if strings.Join(calls, ",") != "restore" {
		t.Errorf("calls = %v, want [restore]", calls)
	}
	if len(h.exits) != 1 || h.exits[0] != 1 {
		t.Errorf("exit codes = %v, want [1]", h.exits)
	}
	if !strings.Contains(h.stderr.String(), "MAP01 not found") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
	if !strings.Contains(h.out.String(), "code=FATAL") {
		t.Errorf("expected fatal log line, got %q", h.out.String())
	}

	var skipped bool
	for _, rec := range h.exp.exits {
		if rec.Action == "save" {
			skipped = rec.Skipped && rec.Code == 1
		}
	}
	if !skipped {
		t.Errorf("save should be recorded as skipped with code 1: %+v", h.exp.exits)
	}
}

func TestFatalFromExitAction(t *testing.T) {
	h := newHarness(t, config.Default())

	var calls []string
	h.rt.AtExit("last", func() { calls = append(calls, "last") }, shutdown.PriorityLast, true)
	h.rt.AtExit("fails", func() {
		calls = append(calls, "fails")
		h.rt.Fatalf("disk full")
	}, shutdown.PriorityNormal, true)
	h.rt.AtExit("first", func() { calls = append(calls, "first") }, shutdown.PriorityFirst, true)

	h.rt.Exit()

	if strings.Join(calls, ",") != "first,fails,last" {
		t.Errorf("calls = %v, want each action exactly once", calls)
	}
	if len(h.exits) == 0 || h.exits[0] != 1 {
		t.Errorf("nested fatal should exit with 1 first, got %v", h.exits)
	}
}

func TestAtExitBehindDrainIsIgnored(t *testing.T) {
	h := newHarness(t, config.Default())

	var lateRan bool
	h.rt.AtExit("registers-late", func() {
		h.rt.AtExit("late", func() { lateRan = true }, shutdown.PriorityFirst, true)
	}, shutdown.PriorityLast, true)

	h.rt.Exit()

	if lateRan {
		t.Error("action registered behind the cursor should not run")
	}
	if !strings.Contains(h.out.String(), "exit action ignored") {
		t.Errorf("expected warning, got %q", h.out.String())
	}
	if len(h.exits) != 1 || h.exits[0] != 0 {
		t.Errorf("exit codes = %v, want [0]", h.exits)
	}
}

func TestAtExitInvalidPriorityIsFatal(t *testing.T) {
	h := newHarness(t, config.Default())

	h.rt.AtExit("bogus", func() {}, shutdown.Priority(42), true)

	if len(h.exits) != 1 || h.exits[0] != 1 {
		t.Errorf("exit codes = %v, want [1]", h.exits)
	}
	if !strings.Contains(h.stderr.String(), "bogus") {
		t.Errorf("stderr should name the action, got %q", h.stderr.String())
	}
}

func TestRecover(t *testing.T) {
	h := newHarness(t, config.Default())

	func() {
		defer h.rt.Recover()
		var m map[string]int
		m["boom"]++
	}()

	if len(h.exits) != 1 || h.exits[0] != 1 {
		t.Errorf("exit codes = %v, want [1]", h.exits)
	}
	if !strings.Contains(h.out.String(), "code=PANIC") {
		t.Errorf("expected panic log line, got %q", h.out.String())
	}
}

func TestRecoverNoPanic(t *testing.T) {
	h := newHarness(t, config.Default())

	func() {
		defer h.rt.Recover()
	}()

	if len(h.exits) != 0 {
		t.Errorf("no panic should not exit, got %v", h.exits)
	}
}

func TestStartTwice(t *testing.T) {
	h := newHarness(t, config.Default())
	if err := h.rt.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := h.rt.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
}

func TestTimeSwitchReported(t *testing.T) {
	h := newHarness(t, config.Default())
	if err := h.rt.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	h.clock.Advance(1000)
	h.rt.Time().SetFastDemo(true)

	if !strings.Contains(h.out.String(), "time_switch") || !strings.Contains(h.out.String(), "to=fast_demo") {
		t.Errorf("expected time switch log, got %q", h.out.String())
	}
	if !strings.Contains(h.out.String(), "tick=35") {
		t.Errorf("expected switch at tick 35, got %q", h.out.String())
	}

	var found bool
	for _, name := range h.exp.events {
		if name == "time_switch" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected time_switch event, got %v", h.exp.events)
	}
}

func TestTracingSpans(t *testing.T) {
	recorder := tracetest.NewInMemoryExporter()
	provider, err := telemetry.NewProviderWithExporter("simhost-test", keptSpans{recorder})
	if err != nil {
		t.Fatalf("NewProviderWithExporter() error = %v", err)
	}

	h := newHarness(t, config.Default(), WithProvider(provider))
	if err := h.rt.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	h.rt.AtExit("save", func() {}, shutdown.PriorityNormal, true)
	h.rt.Exit()

	names := map[string]bool{}
	for _, span := range recorder.GetSpans() {
		names[span.Name] = true
	}
	for _, want := range []string{"exit.drain", "exit.action.save"} {
		if !names[want] {
			t.Errorf("missing span %q, got %v", want, names)
		}
	}
}

func TestSolo(t *testing.T) {
	cfg := config.Default()
	cfg.Net.Solo = true
	h := newHarness(t, cfg)
	if !h.rt.Solo() {
		t.Error("expected solo")
	}
}
