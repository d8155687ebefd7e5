package timesource

// Strategy selects how elapsed ticks are computed.
type Strategy int

const (
	// Real converts wall-clock milliseconds to ticks directly.
	Real Strategy = iota
	// Scaled multiplies wall-clock milliseconds by the scale percentage first.
	Scaled
	// FastDemo ignores the clock and returns a counter that advances by one
	// tick per query.
	FastDemo
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case Real:
		return "real"
	case Scaled:
		return "scaled"
	case FastDemo:
		return "fast_demo"
	default:
		return "unknown"
	}
}

// Fixed is a 16.16 fixed-point number.
type Fixed int32

// FracUnit is 1.0 in Fixed.
const FracUnit Fixed = 1 << 16

// Float returns f as a float64.
func (f Fixed) Float() float64 {
	return float64(f) / float64(FracUnit)
}

// Switch describes a completed strategy or scale change.
type Switch struct {
	From  Strategy
	To    Strategy
	Scale int
	// Tick is the tick value at the switch boundary.
	Tick int64
}
