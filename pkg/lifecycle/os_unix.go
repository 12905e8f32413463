//go:build unix

package lifecycle

import (
	"os"
	"syscall"
)

// DefaultOSSignals maps SIGUSR1 to a memory warning and SIGUSR2 to a
// background transition.
func DefaultOSSignals() map[os.Signal]Signal {
	return map[os.Signal]Signal{
		syscall.SIGUSR1: SignalMemoryWarning,
		syscall.SIGUSR2: SignalDidEnterBackground,
	}
}
