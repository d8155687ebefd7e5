package host

import (
	"io"

	"github.com/vinayprograms/simhost/telemetry"
	"github.com/vinayprograms/simhost/timesource"
)

// Option configures a Runtime.
type Option func(*options)

type options struct {
	clock    timesource.HostClock
	exit     func(code int)
	output   io.Writer
	stderr   io.Writer
	exporter telemetry.Exporter
	provider *telemetry.Provider
}

// WithClock sets the host clock behind the time source.
// Default: the system monotonic clock.
func WithClock(clock timesource.HostClock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithExit replaces os.Exit as the final step of a drain.
func WithExit(exit func(code int)) Option {
	return func(o *options) {
		o.exit = exit
	}
}

// WithOutput sets the log destination (default: stdout).
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithStderr sets where fatal diagnostics are written (default: stderr).
func WithStderr(w io.Writer) Option {
	return func(o *options) {
		o.stderr = w
	}
}

// WithExporter overrides the exporter built from the telemetry config.
func WithExporter(exp telemetry.Exporter) Option {
	return func(o *options) {
		o.exporter = exp
	}
}

// WithProvider supplies a tracing provider instead of initializing one from
// the tracing config. The runtime closes it on exit.
func WithProvider(p *telemetry.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}
