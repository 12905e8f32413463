//go:build !unix

package lifecycle

import "os"

// DefaultOSSignals is empty on platforms without user signals.
func DefaultOSSignals() map[os.Signal]Signal {
	return map[os.Signal]Signal{}
}
