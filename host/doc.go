// Package host owns the process-lifetime services of a simulation loop:
// the exit sequencer, the simulation time source, logging and telemetry.
//
// A Runtime replaces process-wide globals with one explicit value that the
// loop is handed at startup:
//
//	cfg, err := config.LoadWithEnv("")
//	if err != nil {
//		fmt.Fprintln(os.Stderr, err)
//		os.Exit(1)
//	}
//	rt, err := host.New(cfg)
//	...
//	if err := rt.Start(ctx); err != nil {
//		rt.Fatal(err)
//	}
//	defer rt.Recover()
//
//	rt.AtExit("save-config", saveConfig, shutdown.PriorityNormal, false)
//
//	for running {
//		tic := rt.Time().Ticks()
//		...
//	}
//	rt.Exit()
//
// # Fatal errors
//
// Fatal is the single fatal-error path. It writes the diagnostic to stderr,
// records it in the log and telemetry, and drains the sequencer with exit
// code 1, which skips actions registered without runOnError. Intercepted
// fatal signals and recovered panics both route through Fatal.
//
// Go reports faults in its own code (nil dereference, division by zero) as
// panics rather than catchable signals, so Recover is the way to bring them
// onto the same path. Signals delivered from outside the process are handled
// by the signal relay installed in Start.
//
// # Telemetry
//
// Start schedules the telemetry flush at PriorityVeryLast with runOnError
// set, so exported records and spans from every other exit action are
// delivered before the process ends.
package host
