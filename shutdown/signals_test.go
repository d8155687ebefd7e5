package shutdown

import (
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

// TestRelaySignalsResetsBeforeReporting tests that the default disposition is
// restored before the fatal path sees the signal.
func TestRelaySignalsResetsBeforeReporting(t *testing.T) {
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	reported := make(chan string, 1)

	var order []string
	reset := func(sigs ...os.Signal) {
		for _, s := range sigs {
			order = append(order, "reset:"+signalName(s))
		}
	}
	onFatal := func(msg string) {
		order = append(order, "fatal")
		reported <- msg
	}

	go relaySignals(ch, done, reset, onFatal)
	defer close(done)

	ch <- syscall.SIGTERM

	select {
	case msg := <-reported:
		if msg != "Exiting on signal: SIGTERM" {
			t.Fatalf("unexpected message %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal was not relayed")
	}

	if len(order) != 2 || order[0] != "reset:SIGTERM" || order[1] != "fatal" {
		t.Fatalf("expected reset before fatal, got %v", order)
	}
}

// TestRelaySignalsStops tests that closing done ends the relay.
func TestRelaySignalsStops(t *testing.T) {
	ch := make(chan os.Signal)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		relaySignals(ch, done, func(...os.Signal) {}, func(string) {
			t.Error("unexpected fatal report")
		})
		close(finished)
	}()

	close(done)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

// TestSignalMessage tests the diagnostic naming the signal.
func TestSignalMessage(t *testing.T) {
	msg := SignalMessage(syscall.SIGINT)
	if !strings.HasPrefix(msg, "Exiting on signal: ") {
		t.Fatalf("unexpected prefix in %q", msg)
	}
	if !strings.Contains(msg, "SIGINT") {
		t.Fatalf("expected signal name in %q", msg)
	}
}

// TestFatalSignals tests the intercepted set and that callers get a copy.
func TestFatalSignals(t *testing.T) {
	sigs := FatalSignals()

	want := map[os.Signal]bool{
		syscall.SIGILL:  false,
		syscall.SIGSEGV: false,
		syscall.SIGFPE:  false,
		syscall.SIGABRT: false,
		syscall.SIGTERM: false,
		syscall.SIGINT:  false,
	}
	for _, s := range sigs {
		if _, ok := want[s]; ok {
			want[s] = true
		}
	}
	for s, seen := range want {
		if !seen {
			t.Errorf("expected %v in fatal signal set", s)
		}
	}

	sigs[0] = nil
	if FatalSignals()[0] == nil {
		t.Fatal("FatalSignals should return a copy")
	}
}

// TestHandleSignalsStopIdempotent tests that stop may be called twice.
func TestHandleSignalsStopIdempotent(t *testing.T) {
	seq := NewSequencer(Config{Exit: func(int) {}})
	stop := seq.HandleSignals(func(string) {})
	stop()
	stop()
}
