package shutdown

import (
	"errors"
	"os"
	"time"
)

// Common errors.
var (
	// ErrInvalidPriority indicates a priority outside the known buckets.
	ErrInvalidPriority = errors.New("invalid exit priority")

	// ErrBucketDrained indicates the target bucket was already drained,
	// so the action could never run.
	ErrBucketDrained = errors.New("exit bucket already drained")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Process exit codes.
const (
	// ExitCodeSuccess indicates a cooperative shutdown.
	ExitCodeSuccess = 0

	// ExitCodeError indicates termination through the fatal-error path.
	ExitCodeError = 1
)

// Priority selects the bucket an exit action is drained from.
// Lower priorities are drained first.
type Priority int

const (
	PriorityFirst Priority = iota
	PriorityNormal
	PriorityLast
	PriorityVeryLast

	numPriorities
)

var priorityNames = [numPriorities]string{
	PriorityFirst:    "first",
	PriorityNormal:   "normal",
	PriorityLast:     "last",
	PriorityVeryLast: "very_last",
}

// String returns the bucket name.
func (p Priority) String() string {
	if !p.Valid() {
		return "unknown"
	}
	return priorityNames[p]
}

// Valid reports whether p names a known bucket.
func (p Priority) Valid() bool {
	return p >= PriorityFirst && p < numPriorities
}

// Action is a cleanup function run once during drain.
type Action func()

// ActionResult records what happened to a single action during drain.
type ActionResult struct {
	// Name is the diagnostic label given at registration.
	Name string

	// Priority the action was registered with.
	Priority Priority

	// Skipped is true when the action was removed without running
	// because the process is terminating on error.
	Skipped bool

	// Duration the action took to run.
	Duration time.Duration
}

// Config configures the sequencer.
type Config struct {
	// Exit terminates the process once draining is complete.
	// Default: os.Exit
	Exit func(code int)

	// OnProgress is called after each action is run or skipped.
	// It runs on the drain path and must not register new actions.
	OnProgress func(result ActionResult)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Exit == nil {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultConfig returns configuration that exits the real process.
func DefaultConfig() Config {
	return Config{
		Exit: os.Exit,
	}
}

// entry holds a registered action with its metadata.
type entry struct {
	name       string
	action     Action
	priority   Priority
	runOnError bool
}
