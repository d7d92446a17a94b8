package shadermap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shadermap/backend"
	"github.com/gogpu/shadermap/uniform"
)

func newFinalizedMap(content string, targets ...backend.Target) *ShaderMap {
	id := &ShaderMapID{ContentHash: HashBytes([]byte(content))}
	sm := NewShaderMap(id, PlatformVulkan)
	for _, tgt := range targets {
		sm.AddProgram(backend.Program{Target: tgt, Code: []byte("blob")})
	}
	sm.Finalize()
	return sm
}

func TestShaderMapLifecycle(t *testing.T) {
	tgt := backend.Target{ShaderType: "PS", Stage: backend.StageFragment}
	sm := newFinalizedMap("g", tgt)

	assert.True(t, sm.IsFinalized())
	assert.Equal(t, int32(1), sm.Refs())

	p, ok := sm.Program(ProgramKey{ShaderType: "PS"})
	require.True(t, ok)
	assert.Equal(t, []byte("blob"), p.Code)

	sm.AddRef()
	assert.Equal(t, int32(2), sm.Refs())
	sm.Release()
	sm.Release()
	assert.Equal(t, int32(0), sm.Refs())
}

func TestShaderMapMutationAfterFinalizePanics(t *testing.T) {
	sm := newFinalizedMap("g")
	assert.Panics(t, func() {
		sm.AddProgram(backend.Program{})
	})
	assert.Panics(t, func() {
		sm.SetExpressions(&uniform.ExpressionSet{})
	})
	assert.Panics(t, sm.Finalize)
}

func TestShaderMapOverReleasePanics(t *testing.T) {
	sm := newFinalizedMap("g")
	sm.Release()
	assert.Panics(t, sm.Release)
}

func TestShaderMapNilExpressionsBecomeEmpty(t *testing.T) {
	id := &ShaderMapID{}
	sm := NewShaderMap(id, PlatformVulkan)
	sm.SetExpressions(nil)
	require.NotNil(t, sm.Expressions())
	assert.True(t, sm.Expressions().IsEmpty())
}

func TestShaderMapIsCompleteFor(t *testing.T) {
	vs := backend.Target{ShaderType: "VS", VertexFactory: "LocalVF", Stage: backend.StageVertex}
	ps := backend.Target{ShaderType: "PS", Stage: backend.StageFragment}

	id := &ShaderMapID{ContentHash: HashBytes([]byte("g"))}
	sm := NewShaderMap(id, PlatformVulkan)
	sm.AddProgram(backend.Program{Target: vs, Code: []byte("v")})

	// Unfinalized maps are never complete.
	assert.False(t, sm.IsCompleteFor([]backend.Target{vs}))

	sm.Finalize()
	assert.True(t, sm.IsCompleteFor([]backend.Target{vs}))
	assert.False(t, sm.IsCompleteFor([]backend.Target{vs, ps}))
	assert.True(t, sm.IsCompleteFor(nil))
}

func TestShaderMapProgramsSorted(t *testing.T) {
	sm := newFinalizedMap("g",
		backend.Target{ShaderType: "ZPrepass", Stage: backend.StageVertex},
		backend.Target{ShaderType: "BasePass", Permutation: 1, Stage: backend.StageFragment},
		backend.Target{ShaderType: "BasePass", Permutation: 0, Stage: backend.StageFragment},
	)
	progs := sm.Programs()
	require.Len(t, progs, 3)
	assert.Equal(t, "BasePass", progs[0].Target.ShaderType)
	assert.Equal(t, int32(0), progs[0].Target.Permutation)
	assert.Equal(t, int32(1), progs[1].Target.Permutation)
	assert.Equal(t, "ZPrepass", progs[2].Target.ShaderType)
}

func TestRegistrySharing(t *testing.T) {
	r := NewRegistry()

	a := newFinalizedMap("g")
	shared := r.Register(a)
	assert.Same(t, a, shared)
	assert.Equal(t, 1, r.Len())
	assert.Same(t, a, r.Find(a.Digest()))

	// A second map for the same fingerprint resolves to the first.
	b := newFinalizedMap("g")
	shared = r.Register(b)
	assert.Same(t, a, shared)
	assert.Equal(t, 1, r.Len())
	b.Release()

	assert.Nil(t, r.Find(HashBytes([]byte("missing"))))
}

func TestRegistryRejectsUnfinalized(t *testing.T) {
	r := NewRegistry()
	sm := NewShaderMap(&ShaderMapID{}, PlatformVulkan)
	assert.Panics(t, func() { r.Register(sm) })
}

func TestRegistryRemoveOnLastRelease(t *testing.T) {
	r := NewRegistry()
	sm := newFinalizedMap("g")
	r.Register(sm)
	assert.Equal(t, int32(2), sm.Refs()) // caller + registry

	sm.Release() // caller's reference
	assert.Equal(t, 1, r.Len())

	r.Clear() // registry's reference; last one destroys the map
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, int32(0), sm.Refs())
}
