// Package timesource provides simulation time for a fixed-timestep loop.
//
// A Source turns a host millisecond clock into simulation ticks using one of
// three strategies:
//
//   - Real: ticks = elapsed_ms * ticrate / 1000
//   - Scaled: elapsed time is multiplied by scale/100 first
//   - FastDemo: a counter that advances by one per query, independent of the
//     clock, for bit-identical demo playback on any host
//
// Strategies can be switched between frames with SetScale and SetFastDemo.
// The reported tick sequence is continuous across a switch: no backward step,
// no repeated tick, no jump.
//
// The loop typically asks how far the simulation is behind and renders with
// the fractional tick for interpolation:
//
//	src, _ := timesource.New(timesource.NewSystemClock(), timesource.DefaultConfig())
//	for {
//	    for game.Tick() < src.Ticks() {
//	        game.Step()
//	    }
//	    render(src.FractionalTick())
//	    src.Delay(time.Millisecond)
//	}
package timesource
