// Package async runs background goroutines that log instead of crashing.
package async

import "runtime/debug"

// PanicLogger receives panic reports from background goroutines.
type PanicLogger interface {
	Error(format string, args ...any)
}

// Go runs fn on a new goroutine with panic recovery.
func Go(logger PanicLogger, name string, fn func()) {
	go func() {
		defer Recover(logger, name)
		fn()
	}()
}

// Recover reports a recovered panic through logger. It must be deferred.
func Recover(logger PanicLogger, name string) {
	r := recover()
	if r == nil || logger == nil {
		return
	}
	if name == "" {
		name = "anonymous"
	}
	logger.Error("goroutine %s panicked: %v\n%s", name, r, debug.Stack())
}
