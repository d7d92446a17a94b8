// Package backend defines the shader compile backend contract.
//
// A Backend receives shader source text plus the environment defines derived
// from material properties, and produces one compiled program blob per
// requested target. The graph translation that produces the source itself is
// a separate collaborator and is not part of this contract.
package backend

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Stage identifies the pipeline stage a program is compiled for.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

// String returns a human-readable name for the stage.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "Vertex"
	case StageFragment:
		return "Fragment"
	case StageCompute:
		return "Compute"
	default:
		return "Unknown"
	}
}

// Target describes one program to compile from a source unit.
type Target struct {
	// ShaderType is the stable shader type name, e.g. "BasePass".
	ShaderType string
	// Permutation selects one static permutation of the shader type.
	Permutation int32
	// VertexFactory is the stable vertex factory type name. Empty for
	// targets that do not bind a vertex factory (compute).
	VertexFactory string
	// Stage is the pipeline stage to compile for.
	Stage Stage
}

// Program is one compiled program blob.
type Program struct {
	Target Target
	// Code is the backend-specific compiled representation, e.g. SPIR-V.
	Code []byte
}

// Backend compiles shader source for a set of targets.
//
// Implementations must be safe for concurrent use: the scheduler runs
// multiple compile jobs on worker goroutines.
type Backend interface {
	// Compile builds one program per target from the given source and
	// define set. Defines are "NAME=VALUE" strings; the backend decides
	// how they are injected into the source. Any error fails the whole
	// compile attempt.
	Compile(ctx context.Context, source string, defines []string, targets []Target) ([]Program, error)
}

// loggerPtr stores the package logger, nop by default.
// The root package propagates its logger here via SetLogger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures logging for compile backends. Pass nil to silence.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current backend logger.
func Logger() *slog.Logger { return loggerPtr.Load() }

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
