package moviequiz

import (
	"log"
	"sync/atomic"
)

var verboseMode atomic.Bool

// SetVerbose sets the global verbose mode
func SetVerbose(verbose bool) {
	verboseMode.Store(verbose)
}

// Verbose reports whether verbose logging is enabled
func Verbose() bool {
	return verboseMode.Load()
}

// VerboseLog logs only when verbose mode is enabled
func VerboseLog(format string, v ...interface{}) {
	if Verbose() {
		log.Printf(format, v...)
	}
}
