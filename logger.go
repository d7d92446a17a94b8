package shadermap

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/shadermap/backend"
	"github.com/gogpu/shadermap/uniform"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for shadermap and all its sub-packages.
// By default, shadermap produces no log output. Call SetLogger to enable it.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore the default silent behavior).
//
// Log levels used by shadermap:
//   - [slog.LevelDebug]: cache hits, fingerprint details, job lifecycle
//   - [slog.LevelInfo]: compile kick-off and completion
//   - [slog.LevelWarn]: compile failures, fallback substitution
//
// Example:
//
//	shadermap.SetLogger(slog.Default())
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	// Leaf packages cannot import this one; push the logger down.
	uniform.SetLogger(l)
	backend.SetLogger(l)
}

// Logger returns the current logger used by shadermap.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
