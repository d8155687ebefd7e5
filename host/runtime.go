package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/vinayprograms/simhost/config"
	herrors "github.com/vinayprograms/simhost/errors"
	"github.com/vinayprograms/simhost/logging"
	"github.com/vinayprograms/simhost/shutdown"
	"github.com/vinayprograms/simhost/telemetry"
	"github.com/vinayprograms/simhost/timesource"
)

// telemetryCloseTimeout bounds the final flush of spans and events.
const telemetryCloseTimeout = 5 * time.Second

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("runtime already started")

// Runtime is the process-lifetime context of a simulation loop.
type Runtime struct {
	cfg    config.Config
	runID  string
	logger *logging.Logger
	stderr io.Writer

	exits *shutdown.Sequencer
	time  *timesource.Source

	exporter telemetry.Exporter
	provider *telemetry.Provider
	tracer   *telemetry.Tracer

	started     atomic.Bool
	stopSignals func()

	// code is the exit code of the drain in progress.
	code         atomic.Int64
	drainStarted atomic.Bool

	mu        sync.Mutex
	drainCtx  context.Context
	drainSpan trace.Span
}

// New builds a Runtime from a validated configuration. Nothing is installed
// process-wide until Start.
func New(cfg config.Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		output: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Runtime{
		cfg:      cfg,
		runID:    uuid.NewString(),
		stderr:   o.stderr,
		provider: o.provider,
		tracer:   telemetry.GetTracer(),
		drainCtx: context.Background(),
	}

	base := logging.New()
	base.SetOutput(o.output)
	base.SetLevel(cfg.LogLevel())
	r.logger = base.WithComponent("host").WithTraceID(r.runID)

	r.exporter = o.exporter
	if r.exporter == nil {
		exp, err := telemetry.NewExporter(cfg.Telemetry.Protocol, cfg.Telemetry.Endpoint)
		if err != nil {
			return nil, herrors.WrapWithCode(err, herrors.ErrCodeInvalidConfig, "telemetry exporter")
		}
		r.exporter = exp
	}
	if r.provider != nil {
		r.tracer = r.provider.Tracer()
	}

	seqCfg := shutdown.DefaultConfig()
	if o.exit != nil {
		seqCfg.Exit = o.exit
	}
	seqCfg.OnProgress = r.onProgress
	r.exits = shutdown.NewSequencer(seqCfg)

	src, err := timesource.New(o.clock, cfg.TimeSource())
	if err != nil {
		return nil, herrors.WrapWithCode(err, herrors.ErrCodeInvalidConfig, "time source")
	}
	src.OnSwitch(r.onSwitch)
	r.time = src

	return r, nil
}

// Start installs the fatal signal relay, sets the time source zero point,
// starts tracing when configured and schedules the final telemetry flush.
func (r *Runtime) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if r.provider == nil && r.cfg.Telemetry.Tracing.Endpoint != "" {
		tc := r.cfg.Telemetry.Tracing
		p, err := telemetry.InitProvider(ctx, telemetry.ProviderConfig{
			ServiceName: tc.ServiceName,
			Endpoint:    tc.Endpoint,
			Protocol:    tc.Protocol,
			Insecure:    tc.Insecure,
		})
		if err != nil {
			return herrors.Wrap(err, "start tracing")
		}
		r.provider = p
		r.tracer = p.Tracer()
	}

	r.AtExit("telemetry", r.closeTelemetry, shutdown.PriorityVeryLast, true)

	r.stopSignals = r.exits.HandleSignals(r.onSignal)
	r.time.Start()

	r.logger.RunStart(r.time.TicRate(), r.time.Strategy().String(), r.cfg.Net.Solo)
	r.exporter.LogEvent("run_start", map[string]interface{}{
		"run_id":   r.runID,
		"ticrate":  r.time.TicRate(),
		"strategy": r.time.Strategy().String(),
		"solo":     r.cfg.Net.Solo,
	})
	return nil
}

// AtExit registers fn to run during shutdown. An unknown priority is fatal;
// registering behind an in-progress drain is logged and ignored.
func (r *Runtime) AtExit(name string, fn shutdown.Action, priority shutdown.Priority, runOnError bool) {
	err := r.exits.Schedule(name, fn, priority, runOnError)
	switch {
	case err == nil:
	case errors.Is(err, shutdown.ErrBucketDrained):
		r.logger.Warn("exit action ignored", map[string]interface{}{
			"action":   name,
			"priority": priority.String(),
			"reason":   err.Error(),
		})
	default:
		r.Fatal(herrors.Registration(name, err))
	}
}

// Fatal reports err and terminates through the error drain.
// It does not return unless the exit function was replaced.
func (r *Runtime) Fatal(err error) {
	if err == nil {
		err = herrors.FromCode(herrors.ErrCodeFatal)
	}
	code := herrors.Code(err)
	if code == "" {
		code = herrors.ErrCodeFatal
	}

	fmt.Fprintln(r.stderr, err.Error())
	r.logger.FatalError(err, code.String())
	r.exporter.LogEvent("fatal", map[string]interface{}{
		"run_id": r.runID,
		"code":   code.String(),
		"error":  err.Error(),
	})
	r.tracer.RecordFatal(r.context(), code.String(), err)

	r.terminate(shutdown.ExitCodeError)
}

// Fatalf formats a fatal error and terminates.
func (r *Runtime) Fatalf(format string, args ...interface{}) {
	r.Fatal(herrors.Newf(herrors.ErrCodeFatal, format, args...))
}

// Exit shuts down cooperatively with exit code 0.
func (r *Runtime) Exit() {
	r.terminate(shutdown.ExitCodeSuccess)
}

// Recover turns a panic into a fatal error. Use it directly with defer.
func (r *Runtime) Recover() {
	if v := recover(); v != nil {
		r.Fatal(herrors.RecoverPanic(v))
	}
}

// Time returns the simulation time source.
func (r *Runtime) Time() *timesource.Source {
	return r.time
}

// Exits returns the exit sequencer.
func (r *Runtime) Exits() *shutdown.Sequencer {
	return r.exits
}

// Logger returns the runtime logger.
func (r *Runtime) Logger() *logging.Logger {
	return r.logger
}

// RunID returns the identifier attached to every log line and record.
func (r *Runtime) RunID() string {
	return r.runID
}

// Solo reports whether the single-player fallback was requested.
func (r *Runtime) Solo() bool {
	return r.cfg.Net.Solo
}

// terminate drains with code and exits. A nested call from inside an exit
// action joins the drain already in progress.
func (r *Runtime) terminate(code int) {
	r.code.Store(int64(code))
	if r.drainStarted.CompareAndSwap(false, true) {
		pending := r.exits.Pending()
		r.logger.DrainStart(code, pending)

		ctx, span := r.tracer.StartDrainSpan(context.Background(), r.runID, code, pending)
		r.mu.Lock()
		r.drainCtx, r.drainSpan = ctx, span
		r.mu.Unlock()
	}

	r.exits.Drain(code)
	r.endDrainSpan()
	r.exits.DrainAndTerminate(code)
}

// onSignal is the fatal signal relay target.
func (r *Runtime) onSignal(msg string) {
	r.logger.SignalCaught(msg)
	r.Fatal(herrors.Signal(msg))
}

// onProgress reports each drained action.
func (r *Runtime) onProgress(res shutdown.ActionResult) {
	r.logger.ExitAction(res.Name, res.Priority.String(), res.Skipped, res.Duration)

	rec := telemetry.ExitRecord{
		RunID:     r.runID,
		Action:    res.Name,
		Priority:  res.Priority.String(),
		Code:      int(r.code.Load()),
		Skipped:   res.Skipped,
		Duration:  res.Duration,
		Timestamp: time.Now(),
	}
	r.exporter.LogExit(rec)
	r.tracer.RecordExitAction(r.context(), rec)
}

// onSwitch reports time source strategy and scale changes.
func (r *Runtime) onSwitch(sw timesource.Switch) {
	r.logger.TimeSwitch(sw.From.String(), sw.To.String(), sw.Scale, sw.Tick)
	r.exporter.LogEvent("time_switch", map[string]interface{}{
		"run_id": r.runID,
		"from":   sw.From.String(),
		"to":     sw.To.String(),
		"scale":  sw.Scale,
		"tick":   sw.Tick,
	})
	r.tracer.RecordSwitch(r.context(), telemetry.SwitchSpanOptions{
		From:  sw.From.String(),
		To:    sw.To.String(),
		Scale: sw.Scale,
		Tick:  sw.Tick,
	})
}

// closeTelemetry is the last exit action: it ends the drain span and
// flushes the exporter and tracing provider.
func (r *Runtime) closeTelemetry() {
	r.endDrainSpan()

	if err := r.exporter.Close(); err != nil {
		r.logger.Warn("telemetry exporter close failed", map[string]interface{}{"error": err.Error()})
	}
	if r.provider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), telemetryCloseTimeout)
	defer cancel()
	if err := r.provider.Close(ctx); err != nil {
		r.logger.Warn("tracing shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

func (r *Runtime) endDrainSpan() {
	r.mu.Lock()
	span := r.drainSpan
	r.drainSpan = nil
	r.mu.Unlock()

	if span != nil {
		r.tracer.EndDrainSpan(span, int(r.code.Load()))
	}
}

func (r *Runtime) context() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drainCtx
}
