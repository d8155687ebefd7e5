package timesource

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultTicRate is the simulation rate in ticks per second.
	DefaultTicRate = 35

	// MaxTicRate keeps one tick at least one millisecond long.
	MaxTicRate = 1000

	// MinScale and MaxScale bound the scale percentage.
	MinScale = 1
	MaxScale = 10000
)

// ScaleSteps are the stops StepScale moves between.
var ScaleSteps = []int{10, 25, 50, 75, 100, 125, 150, 200, 300, 400, 500, 1000}

// Common errors.
var (
	// ErrInvalidScale indicates a scale outside [MinScale, MaxScale].
	ErrInvalidScale = errors.New("invalid time scale")

	// ErrInvalidTicRate indicates a tic rate outside [1, MaxTicRate].
	ErrInvalidTicRate = errors.New("invalid tic rate")
)

// Config configures a Source.
type Config struct {
	// TicRate is the number of simulation ticks per second.
	// Default: 35
	TicRate int

	// Scale is the percentage applied to wall-clock time. 100 is real time.
	// Default: 100
	Scale int

	// FastDemo starts the source in fast-demo mode.
	FastDemo bool
}

// DefaultConfig returns real-time configuration at the default tic rate.
func DefaultConfig() Config {
	return Config{
		TicRate: DefaultTicRate,
		Scale:   100,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TicRate < 1 || c.TicRate > MaxTicRate {
		return fmt.Errorf("%w: %d", ErrInvalidTicRate, c.TicRate)
	}
	if c.Scale < MinScale || c.Scale > MaxScale {
		return fmt.Errorf("%w: %d%%", ErrInvalidScale, c.Scale)
	}
	return nil
}

// Source reports simulation time through a swappable strategy.
//
// Elapsed milliseconds under Real and Scaled are
//
//	offset + (raw - base) * scale / 100
//
// where base is the raw reading at the last switch boundary and offset is the
// elapsed time carried across it. Every switch re-anchors base and offset, so
// the reported sequence continues from where the previous strategy left off.
//
// The switch protocol reads the old "now" and then writes new state; the
// internal lock makes that a single step, but callers are still expected to
// drive a Source from one loop.
type Source struct {
	clock   HostClock
	ticRate int64

	mu       sync.Mutex
	strategy Strategy
	scale    int64
	base     int64
	offset   int64
	fastTick int64
	lastRaw  int64
	started  bool
	onSwitch []func(Switch)
}

// New creates a Source reading clock.
func New(clock HostClock, cfg Config) (*Source, error) {
	if clock == nil {
		clock = NewSystemClock()
	}
	if cfg.TicRate == 0 {
		cfg.TicRate = DefaultTicRate
	}
	if cfg.Scale == 0 {
		cfg.Scale = 100
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Source{
		clock:   clock,
		ticRate: int64(cfg.TicRate),
		scale:   int64(cfg.Scale),
	}
	s.strategy = s.wallStrategy()
	if cfg.FastDemo {
		s.strategy = FastDemo
	}
	return s, nil
}

// OnSwitch registers fn to be called after every strategy or scale change.
// fn runs outside the source lock and may query the source.
func (s *Source) OnSwitch(fn func(Switch)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSwitch = append(s.onSwitch, fn)
}

// Start fixes the zero point without consuming a fast-demo tick.
// Calling it is optional; the first query does the same.
func (s *Source) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readRaw()
}

// Ticks returns elapsed simulation ticks since the zero point.
// Under FastDemo every call advances the counter by one.
func (s *Source) Ticks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.readRaw()
	if s.strategy == FastDemo {
		t := s.fastTick
		s.fastTick++
		return t
	}
	return s.toTicks(s.elapsed(raw))
}

// Millis returns elapsed milliseconds since the zero point. Under FastDemo it
// is the synthetic counter expressed in milliseconds.
func (s *Source) Millis() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.readRaw()
	if s.strategy == FastDemo {
		return s.fastTick * 1000 / s.ticRate
	}
	return s.elapsed(raw)
}

// FractionalTick returns the position inside the current tick in [0, FracUnit).
// It is always zero under FastDemo.
func (s *Source) FractionalTick() Fixed {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.readRaw()
	if s.strategy == FastDemo {
		return 0
	}
	rem := (s.elapsed(raw) * s.ticRate) % 1000
	return Fixed(rem * int64(FracUnit) / 1000)
}

// SetScale changes the scale percentage. 100 selects Real, anything else
// Scaled. Under FastDemo the new scale is kept for when fast demo ends.
func (s *Source) SetScale(pct int) error {
	if pct < MinScale || pct > MaxScale {
		return fmt.Errorf("%w: %d%%", ErrInvalidScale, pct)
	}

	s.mu.Lock()
	if s.strategy == FastDemo || s.scale == int64(pct) {
		s.scale = int64(pct)
		s.mu.Unlock()
		return nil
	}

	raw := s.readRaw()
	s.anchor(raw, s.elapsed(raw))
	from := s.strategy
	s.scale = int64(pct)
	s.strategy = s.wallStrategy()
	sw := Switch{From: from, To: s.strategy, Scale: pct, Tick: s.toTicks(s.offset)}
	observers := s.observers()
	s.mu.Unlock()

	notify(observers, sw)
	return nil
}

// StepScale moves the scale to the next entry of ScaleSteps above (dir > 0)
// or below (dir < 0) the current scale and returns the resulting scale.
func (s *Source) StepScale(dir int) int {
	cur := s.Scale()
	next := cur
	switch {
	case dir > 0:
		for _, step := range ScaleSteps {
			if step > cur {
				next = step
				break
			}
		}
	case dir < 0:
		for i := len(ScaleSteps) - 1; i >= 0; i-- {
			if ScaleSteps[i] < cur {
				next = ScaleSteps[i]
				break
			}
		}
	}
	if next != cur {
		_ = s.SetScale(next)
	}
	return s.Scale()
}

// SetFastDemo enters or leaves fast-demo mode.
//
// Entering seeds the counter with the current tick. Leaving converts the
// counter back into milliseconds, so wall-clock ticking resumes at the next
// synthetic tick regardless of how much real time passed meanwhile.
func (s *Source) SetFastDemo(on bool) {
	s.mu.Lock()
	if on == (s.strategy == FastDemo) {
		s.mu.Unlock()
		return
	}

	raw := s.readRaw()
	from := s.strategy
	if on {
		s.fastTick = s.toTicks(s.elapsed(raw))
		s.strategy = FastDemo
	} else {
		s.anchor(raw, ceilDiv(s.fastTick*1000, s.ticRate))
		s.strategy = s.wallStrategy()
	}
	sw := Switch{From: from, To: s.strategy, Scale: int(s.scale), Tick: s.fastTick}
	observers := s.observers()
	s.mu.Unlock()

	notify(observers, sw)
}

// Delay blocks for d using the host clock.
func (s *Source) Delay(d time.Duration) {
	s.clock.Sleep(d)
}

// Strategy returns the active strategy.
func (s *Source) Strategy() Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategy
}

// Scale returns the scale percentage.
func (s *Source) Scale() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.scale)
}

// TicRate returns ticks per second.
func (s *Source) TicRate() int {
	return int(s.ticRate)
}

// readRaw reads the host clock, fixing the zero point on first use. A reading
// below the previous one is clamped so time stalls instead of rewinding.
func (s *Source) readRaw() int64 {
	raw := s.clock.Millis()
	if !s.started {
		s.started = true
		s.base = raw
		s.lastRaw = raw
		s.offset = 0
	}
	if raw < s.lastRaw {
		raw = s.lastRaw
	}
	s.lastRaw = raw
	return raw
}

func (s *Source) elapsed(raw int64) int64 {
	return s.offset + (raw-s.base)*s.scale/100
}

func (s *Source) anchor(raw, elapsed int64) {
	s.base = raw
	s.offset = elapsed
}

func (s *Source) toTicks(ms int64) int64 {
	return ms * s.ticRate / 1000
}

func (s *Source) wallStrategy() Strategy {
	if s.scale == 100 {
		return Real
	}
	return Scaled
}

func (s *Source) observers() []func(Switch) {
	if len(s.onSwitch) == 0 {
		return nil
	}
	out := make([]func(Switch), len(s.onSwitch))
	copy(out, s.onSwitch)
	return out
}

func notify(observers []func(Switch), sw Switch) {
	for _, fn := range observers {
		fn(sw)
	}
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
