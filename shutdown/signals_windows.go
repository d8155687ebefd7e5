package shutdown

import (
	"os"
	"syscall"
)

// Windows has no SIGBUS; the runtime delivers console events as os.Interrupt
// or SIGTERM, the remaining entries only arrive when raised explicitly.
var fatalSignals = []os.Signal{
	syscall.SIGILL,
	syscall.SIGSEGV,
	syscall.SIGFPE,
	syscall.SIGABRT,
	syscall.SIGTERM,
	os.Interrupt,
}

var signalNames = map[syscall.Signal]string{
	syscall.SIGILL:  "SIGILL",
	syscall.SIGSEGV: "SIGSEGV",
	syscall.SIGFPE:  "SIGFPE",
	syscall.SIGABRT: "SIGABRT",
	syscall.SIGTERM: "SIGTERM",
	syscall.SIGINT:  "SIGINT",
}

func signalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if name, ok := signalNames[s]; ok {
			return name
		}
	}
	return sig.String()
}
