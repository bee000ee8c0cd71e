//go:build unix

package watch

import (
	"os"
	"syscall"
)

// shutdownSignals end Run gracefully. SIGHUP arrives when the controlling
// terminal goes away; the command sits in its own process group and would
// not receive it.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
