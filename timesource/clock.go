package timesource

import (
	"sync"
	"time"
)

// HostClock is what the time source needs from the host: a monotonic
// millisecond reading and a blocking sleep. Neither may fail.
type HostClock interface {
	// Millis returns a monotonic millisecond reading with an arbitrary origin.
	Millis() int64

	// Sleep blocks the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// SystemClock reads the monotonic component of the Go runtime clock.
type SystemClock struct {
	origin time.Time
}

// NewSystemClock returns a clock whose origin is the moment of the call.
func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

// Millis returns milliseconds since the clock was created.
func (c *SystemClock) Millis() int64 {
	return time.Since(c.origin).Milliseconds()
}

// Sleep delegates to time.Sleep.
func (c *SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// ManualClock is a HostClock advanced by hand. Sleep advances it instead of
// blocking, which makes it suitable for tests and offline tooling.
type ManualClock struct {
	mu sync.Mutex
	ms int64
}

// NewManualClock returns a clock reading start.
func NewManualClock(start int64) *ManualClock {
	return &ManualClock{ms: start}
}

// Millis returns the current reading.
func (c *ManualClock) Millis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ms
}

// Sleep advances the clock by d.
func (c *ManualClock) Sleep(d time.Duration) {
	c.Advance(d.Milliseconds())
}

// Advance moves the clock forward by ms.
func (c *ManualClock) Advance(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ms += ms
}

// Set replaces the reading. Setting it backward simulates a faulty host clock.
func (c *ManualClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ms = ms
}

// Verify interface compliance at compile time.
var (
	_ HostClock = (*SystemClock)(nil)
	_ HostClock = (*ManualClock)(nil)
)
