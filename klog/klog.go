// Package klog provides the kernel's leveled logging facility: a thin
// wrapper around github.com/cosmosnicolaou/llog, modeled directly on
// vlog/log.go's logger wrapper but trimmed to the handful of calls the
// kernel packages actually make (creation/reset/destroy lifecycle
// events).
package klog

import (
	"sync"

	"github.com/cosmosnicolaou/llog"
)

const stackSkip = 1

type logger struct {
	log *llog.Log
	mu  sync.Mutex
}

// Log is the package-wide kernel logger, in the style of vlog.Log.
var Log = &logger{log: llog.NewLogger("stateos", stackSkip)}

// SetVerbosity sets the -v style verbosity threshold used by V.
func SetVerbosity(v int) {
	Log.mu.Lock()
	defer Log.mu.Unlock()
	Log.log.SetV(llog.Level(v))
}

// SetLogToStderr controls whether log lines are also written to
// stderr, mirroring vlog's AlsoLogToStderr option.
func SetLogToStderr(b bool) {
	Log.mu.Lock()
	defer Log.mu.Unlock()
	Log.log.SetLogToStderr(b)
}

// verboseLog is returned by V; its Infof is a no-op unless the
// configured verbosity is at least the requested level.
type verboseLog bool

func (v verboseLog) Infof(format string, args ...interface{}) {
	if v {
		Log.log.Printf(llog.InfoLog, format, args...)
	}
}

// V reports whether logging at the given verbosity level is enabled,
// in the manner of vlog's V/VI.
func V(level int) verboseLog {
	return verboseLog(Log.log.V(llog.Level(level)))
}

// Infof logs to the INFO log unconditionally.
func Infof(format string, args ...interface{}) {
	Log.log.Printf(llog.InfoLog, format, args...)
}

// Errorf logs to the ERROR and INFO logs.
func Errorf(format string, args ...interface{}) {
	Log.log.Printf(llog.ErrorLog, format, args...)
}
