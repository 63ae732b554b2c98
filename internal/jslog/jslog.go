// Package jslog holds the single process-wide logger shared by the builder,
// runtime, and interpreter packages, mirroring the lazily-initialized,
// no-op-by-default logger this codebase's engine package exposes.
package jslog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
	mu         sync.Mutex
)

// Logger returns the shared logger instance, defaulting to a no-op logger
// until SetLogger is called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// SetLogger installs the embedder's logger. Safe to call once at startup,
// before any runtime is constructed.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
	loggerOnce.Do(func() {}) // mark as initialized so Logger() won't overwrite
}

// Debugf is a no-op unless debugging has been enabled, matching the
// debugf-over-Sugar() idiom used elsewhere in this codebase for hot-path
// tracing that must not allocate when disabled.
var debugEnabled = false

// SetDebug toggles verbose tracing (bytecode dumps, scope resolution,
// dispatch traces). Off by default.
func SetDebug(on bool) { debugEnabled = on }

// Debugf logs at Debug level only when debugging is enabled.
func Debugf(format string, args ...any) {
	if debugEnabled {
		Logger().Sugar().Debugf(format, args...)
	}
}
