package monitoring

import "log"

// Logf receives progress and diagnostic messages from the solver and
// sampler. It defaults to log.Printf; the CLI routes it to logrus.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. A nil f silences logging.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = Discard
		return
	}
	Logf = f
}

// Discard is a no-op logger.
func Discard(string, ...interface{}) {}
