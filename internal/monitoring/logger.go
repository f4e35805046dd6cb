// Package monitoring holds the workbench's diagnostic logger. Components
// log through Logf with a bracketed prefix naming the component, e.g.
// "[Runner] experiment 12 failure". Studies embedding the workbench can
// redirect or mute the stream with SetLogger.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf
// and may be replaced via SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger, silencing all workbench diagnostics.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
