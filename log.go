package devmock

import (
	"log"
	"sync/atomic"
)

// verboseMode is read by background loads, so it is atomic
var verboseMode atomic.Bool

// SetVerbose turns VerboseLog output on or off
func SetVerbose(verbose bool) {
	verboseMode.Store(verbose)
}

// IsVerbose reports whether verbose output is on
func IsVerbose() bool {
	return verboseMode.Load()
}

// VerboseLog logs with a [verbose] prefix, only when verbose mode is enabled
func VerboseLog(format string, v ...interface{}) {
	if verboseMode.Load() {
		log.Printf("[verbose] "+format, v...)
	}
}
