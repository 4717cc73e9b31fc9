// Package monitoring carries the diagnostics shared by the tracker
// packages: a replaceable printf-style logger and per-frame timing stats.
package monitoring

import (
	"log"
	"sync"
)

var mu sync.RWMutex

// logf is the current sink; Logf forwards to it.
var logf func(format string, v ...interface{}) = log.Printf

// Logf writes a diagnostic line through the installed logger (log.Printf
// unless SetLogger replaced it). Library packages only log notable events,
// never per pixel or per point.
func Logf(format string, v ...interface{}) {
	mu.RLock()
	f := logf
	mu.RUnlock()
	f(format, v...)
}

// SetLogger replaces the logger and returns the previous one so callers
// (mostly tests) can restore it. nil mutes logging.
func SetLogger(f func(format string, v ...interface{})) (previous func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	mu.Lock()
	previous, logf = logf, f
	mu.Unlock()
	return previous
}
