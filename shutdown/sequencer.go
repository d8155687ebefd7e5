package shutdown

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNilAction indicates Schedule was called without an action.
var ErrNilAction = errors.New("nil exit action")

// Sequencer owns the pending exit actions and drains them in priority order.
//
// Registration happens from ordinary control flow. Drain may additionally be
// entered from the signal relay goroutine or from inside a running action; it
// never allocates and never holds the lock while an action runs, so a nested
// drain picks up exactly where the outer one stopped.
type Sequencer struct {
	config Config

	mu       sync.Mutex
	buckets  [numPriorities][]entry
	cursor   Priority
	pending  int
	results  []ActionResult
	draining atomic.Bool
}

// NewSequencer creates a new exit sequencer.
func NewSequencer(config Config) *Sequencer {
	if config.Exit == nil {
		config.Exit = DefaultConfig().Exit
	}
	return &Sequencer{config: config}
}

// Schedule registers action to run at drain time in the given bucket.
// Within a bucket, later registrations run first. An action with runOnError
// false is dropped without running when the drain exit code is nonzero.
func (s *Sequencer) Schedule(name string, action Action, priority Priority, runOnError bool) error {
	if !priority.Valid() {
		return ErrInvalidPriority
	}
	if action == nil {
		return ErrNilAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if priority < s.cursor {
		return ErrBucketDrained
	}

	// Reserve the result slot now so the drain path never grows the slice.
	if need := len(s.results) + s.pending + 1; cap(s.results) < need {
		grown := make([]ActionResult, len(s.results), 2*need)
		copy(grown, s.results)
		s.results = grown
	}

	s.buckets[priority] = append(s.buckets[priority], entry{
		name:       name,
		action:     action,
		priority:   priority,
		runOnError: runOnError,
	})
	s.pending++
	return nil
}

// ScheduleFunc registers action in the normal bucket, run on every exit path.
func (s *Sequencer) ScheduleFunc(name string, action Action) error {
	return s.Schedule(name, action, PriorityNormal, true)
}

// Drain runs every pending action from the current bucket onward.
// It is safe to re-enter: buckets already drained are never revisited and
// an action is removed before it runs, so nothing runs twice.
func (s *Sequencer) Drain(code int) {
	s.draining.Store(true)
	for {
		e, ok := s.next()
		if !ok {
			return
		}
		s.run(e, code)
	}
}

// DrainAndTerminate drains and then exits the process with code.
// With the default config it never returns.
func (s *Sequencer) DrainAndTerminate(code int) {
	s.Drain(code)
	s.config.Exit(code)
}

// Pending returns the number of actions not yet drained.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Draining reports whether a drain has started.
func (s *Sequencer) Draining() bool {
	return s.draining.Load()
}

// Results returns a copy of the per-action results recorded so far.
func (s *Sequencer) Results() []ActionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActionResult, len(s.results))
	copy(out, s.results)
	return out
}

// next pops the head of the lowest non-empty bucket at or after the cursor.
func (s *Sequencer) next() (entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.cursor < numPriorities {
		bucket := s.buckets[s.cursor]
		if n := len(bucket); n > 0 {
			e := bucket[n-1]
			bucket[n-1] = entry{}
			s.buckets[s.cursor] = bucket[:n-1]
			s.pending--
			return e, true
		}
		s.cursor++
	}
	return entry{}, false
}

// run invokes or skips a single popped action.
func (s *Sequencer) run(e entry, code int) {
	result := ActionResult{
		Name:     e.name,
		Priority: e.priority,
	}

	if code != ExitCodeSuccess && !e.runOnError {
		result.Skipped = true
	} else {
		start := time.Now()
		e.action()
		result.Duration = time.Since(start)
	}

	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()

	if s.config.OnProgress != nil {
		s.config.OnProgress(result)
	}
}
