package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf logs only when verbose mode is enabled. It shares the destination
// configured via SetLogger.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

var verbose bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		Debugf = func(string, ...interface{}) {}
		return
	}
	Logf = f
	if verbose {
		Debugf = f
	}
}

// SetVerbose toggles Debugf output. The batch tools wire this to a -verbose flag.
func SetVerbose(v bool) {
	verbose = v
	if v {
		Debugf = Logf
	} else {
		Debugf = func(string, ...interface{}) {}
	}
}
