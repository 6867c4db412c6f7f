package gelf

import (
	"log"
	"os"
	"sync/atomic"
)

var internalLogger atomic.Value

func init() {
	internalLogger.Store(log.New(os.Stderr, "[gelf] ", log.LstdFlags))
}

// InternalLogger returns the Logger used to write out internal logs, where
// logs get written when something goes wrong in the shipping stack itself.
// The appender must never crash or block the host process, so configuration
// problems found after construction, resolution failures, and per-message
// errors are all reported here and the affected message is dropped.
func InternalLogger() *log.Logger { return internalLogger.Load().(*log.Logger) }

// SetInternalLogger makes l the internal logger. The default internal logger
// writes to os.Stderr with a "[gelf] " prefix.
func SetInternalLogger(l *log.Logger) {
	internalLogger.Store(l)
}
