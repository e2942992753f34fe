// Package diag provides the module's diagnostic logging hooks. The
// library itself stays quiet on success paths; scoring loops and the
// command-line tools report through Logf, and per-iteration detail is
// gated behind the Verbose flag.
package diag

import "log"

// Verbose enables Debugf output. Off by default; the CLIs flip it with
// their -v flag.
var Verbose bool

// Logf is the package-level diagnostic logger. It defaults to
// log.Printf and may be swapped out with SetLogger; tests typically
// mute it.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// Debugf logs through Logf only when Verbose is set.
func Debugf(format string, v ...any) {
	if Verbose {
		Logf(format, v...)
	}
}
