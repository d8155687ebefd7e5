// Package shutdown provides the process exit sequencer: prioritized cleanup
// actions drained exactly once, and the glue that turns fatal OS signals into
// the fatal-error path.
//
// # Overview
//
// Cleanup actions are registered into one of four buckets. At exit the
// sequencer drains the buckets strictly in order, and within a bucket runs the
// most recently registered action first:
//
//	┌────────────┐   ┌────────────┐   ┌────────────┐   ┌────────────┐
//	│   first    │ → │   normal   │ → │    last    │ → │ very_last  │
//	│ C → B → A  │   │   ...      │   │   ...      │   │   ...      │
//	└────────────┘   └────────────┘   └────────────┘   └────────────┘
//	       ↑
//	     cursor (only moves right)
//
// # Usage
//
//	seq := shutdown.NewSequencer(shutdown.DefaultConfig())
//	stop := seq.HandleSignals(func(msg string) {
//	    log.Print(msg)
//	    seq.DrainAndTerminate(shutdown.ExitCodeError)
//	})
//	defer stop()
//
//	seq.Schedule("save-config", saveConfig, shutdown.PriorityNormal, false)
//	seq.Schedule("restore-video", restoreVideo, shutdown.PriorityLast, true)
//
//	// ... run loop ...
//	seq.DrainAndTerminate(shutdown.ExitCodeSuccess)
//
// # Error exits
//
// When the drain exit code is nonzero, actions registered with runOnError
// false are removed without running. Use it for work that is only safe when
// the process state is known good, such as persisting settings.
//
// # Re-entrancy
//
// Drain may be entered again before it returns, typically when an action hits
// a fatal error of its own. The nested call continues from the cursor: actions
// already popped never run again, and buckets already emptied are never
// revisited.
//
// # Signal context
//
// The drain path is written as if it ran in an asynchronous signal handler:
// it does not allocate (result slots are reserved at registration) and it does
// not hold the sequencer lock while an action runs. Go delivers signals to a
// goroutine, so this is a runtime contract of the package rather than
// something the language enforces.
package shutdown
