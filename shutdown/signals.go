package shutdown

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
)

// SignalMessage formats the diagnostic reported when sig is intercepted.
func SignalMessage(sig os.Signal) string {
	return "Exiting on signal: " + signalName(sig)
}

// FatalSignals returns the signals intercepted by HandleSignals on this platform.
func FatalSignals() []os.Signal {
	out := make([]os.Signal, len(fatalSignals))
	copy(out, fatalSignals)
	return out
}

// HandleSignals routes the fatal signal set into onFatal.
//
// Each intercepted signal has its default disposition restored before
// onFatal runs, so a second delivery of the same signal terminates the
// process without coming back here. onFatal is expected not to return in
// production; a nil onFatal prints the diagnostic to stderr and drains with
// ExitCodeError. The returned stop function unsubscribes the relay.
func (s *Sequencer) HandleSignals(onFatal func(msg string)) (stop func()) {
	if onFatal == nil {
		onFatal = func(msg string) {
			fmt.Fprintln(os.Stderr, msg)
			s.DrainAndTerminate(ExitCodeError)
		}
	}

	ch := make(chan os.Signal, len(fatalSignals))
	signal.Notify(ch, fatalSignals...)

	done := make(chan struct{})
	go relaySignals(ch, done, signal.Reset, onFatal)

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// relaySignals restores the default disposition of each received signal and
// reports it, until done is closed.
func relaySignals(ch <-chan os.Signal, done <-chan struct{}, reset func(...os.Signal), onFatal func(msg string)) {
	for {
		select {
		case sig := <-ch:
			reset(sig)
			onFatal(SignalMessage(sig))
		case <-done:
			return
		}
	}
}
