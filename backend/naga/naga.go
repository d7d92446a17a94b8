// Package naga provides a Backend that compiles WGSL shader source to
// SPIR-V using the pure-Go naga compiler.
package naga

import (
	"context"
	"fmt"
	"strings"

	"github.com/gogpu/naga"

	"github.com/gogpu/shadermap/backend"
	"github.com/gogpu/shadermap/cache"
)

// Backend compiles WGSL to SPIR-V via naga. Compiled blobs are cached by
// the content of the fully preprocessed source, so identical source+define
// combinations compile once per process.
//
// Safe for concurrent use.
type Backend struct {
	blobs *cache.ShardedMap[string, []byte]
}

// New creates a naga compile backend with an empty blob cache.
func New() *Backend {
	return &Backend{
		blobs: cache.NewSharded[string, []byte](cache.StringHasher),
	}
}

// Compile implements backend.Backend.
//
// WGSL has no preprocessor, so defines are injected as a block of module
// constants ahead of the source. Each target additionally receives a
// TARGET_STAGE constant so stage-specialized source can branch on it.
func (b *Backend) Compile(ctx context.Context, source string, defines []string, targets []backend.Target) ([]backend.Program, error) {
	programs := make([]backend.Program, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		unit := preprocess(source, defines, t)

		var compileErr error
		code, _ := b.blobs.GetOrCreate(unit, func() []byte {
			spirv, err := naga.Compile(unit)
			if err != nil {
				compileErr = err
				return nil
			}
			return spirv
		})
		if compileErr != nil {
			return nil, fmt.Errorf("naga: compile %s/%s permutation %d: %w",
				t.ShaderType, t.VertexFactory, t.Permutation, compileErr)
		}
		if code == nil {
			// A previous attempt for this unit failed; retry without cache.
			spirv, err := naga.Compile(unit)
			if err != nil {
				return nil, fmt.Errorf("naga: compile %s/%s permutation %d: %w",
					t.ShaderType, t.VertexFactory, t.Permutation, err)
			}
			b.blobs.Set(unit, spirv)
			code = spirv
		}

		backend.Logger().Debug("compiled shader program",
			"shaderType", t.ShaderType,
			"vertexFactory", t.VertexFactory,
			"permutation", t.Permutation,
			"stage", t.Stage.String(),
			"spirvBytes", len(code))

		programs = append(programs, backend.Program{Target: t, Code: code})
	}
	return programs, nil
}

// CacheStats reports blob cache statistics.
func (b *Backend) CacheStats() cache.Stats {
	return b.blobs.Stats()
}

// preprocess prepends the define block to the source. Defines arrive as
// "NAME=VALUE" pairs with numeric values; each becomes a module constant.
func preprocess(source string, defines []string, t backend.Target) string {
	var sb strings.Builder
	for _, d := range defines {
		name, value, found := strings.Cut(d, "=")
		if !found {
			value = "1"
		}
		fmt.Fprintf(&sb, "const %s: u32 = %su;\n", name, value)
	}
	fmt.Fprintf(&sb, "const TARGET_STAGE: u32 = %du;\n", t.Stage)
	fmt.Fprintf(&sb, "const TARGET_PERMUTATION: u32 = %du;\n", t.Permutation)
	sb.WriteString(source)
	return sb.String()
}
