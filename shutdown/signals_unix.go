//go:build unix

package shutdown

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

var fatalSignals = []os.Signal{
	syscall.SIGILL,
	syscall.SIGSEGV,
	syscall.SIGFPE,
	syscall.SIGABRT,
	syscall.SIGTERM,
	syscall.SIGINT,
	syscall.SIGBUS,
}

func signalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if name := unix.SignalName(s); name != "" {
			return name
		}
	}
	return sig.String()
}
