package shadermap

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gogpu/shadermap/backend"
	"github.com/gogpu/shadermap/cache"
	"github.com/gogpu/shadermap/uniform"
)

// ProgramKey addresses one compiled program inside a shader map.
type ProgramKey struct {
	ShaderType    string
	Permutation   int32
	VertexFactory string
}

// ShaderMap is the compiled artifact for one fingerprint: a set of compiled
// shader programs plus one uniform-expression set.
//
// A map is created empty, populated by compilation or deserialization, and
// transitions from compiling to finalized exactly once. Finalized maps are
// immutable and safely shared by reference count across every material
// whose fingerprint matches.
type ShaderMap struct {
	id       ShaderMapID
	digest   Digest
	platform Platform

	refs      atomic.Int32
	finalized atomic.Bool

	mu       sync.Mutex // guards programs/exprs until finalized
	programs map[ProgramKey]backend.Program
	exprs    *uniform.ExpressionSet

	registry *Registry
}

// NewShaderMap creates an empty, unfinalized shader map for a fingerprint.
// The caller holds the initial reference.
func NewShaderMap(id *ShaderMapID, platform Platform) *ShaderMap {
	sm := &ShaderMap{
		id:       *id,
		digest:   id.Digest(),
		platform: platform,
		programs: make(map[ProgramKey]backend.Program),
		exprs:    &uniform.ExpressionSet{},
	}
	sm.refs.Store(1)
	return sm
}

// ID returns the fingerprint the map was compiled for.
func (sm *ShaderMap) ID() *ShaderMapID { return &sm.id }

// Digest returns the canonical fingerprint digest.
func (sm *ShaderMap) Digest() Digest { return sm.digest }

// Platform returns the platform the map was compiled for.
func (sm *ShaderMap) Platform() Platform { return sm.platform }

// AddRef takes one reference. Safe from any goroutine.
func (sm *ShaderMap) AddRef() *ShaderMap {
	sm.refs.Add(1)
	return sm
}

// Release drops one reference. When the last reference is dropped the map
// is removed from its registry and its program storage is released.
func (sm *ShaderMap) Release() {
	n := sm.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic("shadermap: ShaderMap released more times than referenced")
	}
	if r := sm.registry; r != nil {
		r.remove(sm)
	}
	Logger().Debug("shader map destroyed", "fingerprint", sm.digest.String())
}

// Refs returns the current reference count.
func (sm *ShaderMap) Refs() int32 { return sm.refs.Load() }

// IsFinalized reports whether the map has transitioned to its immutable
// state.
func (sm *ShaderMap) IsFinalized() bool { return sm.finalized.Load() }

// AddProgram stores one compiled program. Only valid before Finalize.
func (sm *ShaderMap) AddProgram(p backend.Program) {
	if sm.finalized.Load() {
		panic("shadermap: AddProgram on finalized shader map")
	}
	sm.mu.Lock()
	sm.programs[ProgramKey{
		ShaderType:    p.Target.ShaderType,
		Permutation:   p.Target.Permutation,
		VertexFactory: p.Target.VertexFactory,
	}] = p
	sm.mu.Unlock()
}

// SetExpressions attaches the uniform-expression set produced by the graph
// translator. Only valid before Finalize. A nil set becomes an empty set.
func (sm *ShaderMap) SetExpressions(set *uniform.ExpressionSet) {
	if sm.finalized.Load() {
		panic("shadermap: SetExpressions on finalized shader map")
	}
	if set == nil {
		set = &uniform.ExpressionSet{}
	}
	sm.mu.Lock()
	sm.exprs = set
	sm.mu.Unlock()
}

// Finalize transitions the map to immutable. Exactly once; panics on a
// second call since that indicates a scheduler bug.
func (sm *ShaderMap) Finalize() {
	if !sm.finalized.CompareAndSwap(false, true) {
		panic("shadermap: ShaderMap finalized twice")
	}
}

// Expressions returns the uniform-expression set. Implements
// uniform.Artifact. Stable once the map is finalized.
func (sm *ShaderMap) Expressions() *uniform.ExpressionSet {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.exprs
}

// Program looks up one compiled program.
func (sm *ShaderMap) Program(key ProgramKey) (backend.Program, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	p, ok := sm.programs[key]
	return p, ok
}

// Programs returns every compiled program sorted by key, for serialization
// and inspection.
func (sm *ShaderMap) Programs() []backend.Program {
	sm.mu.Lock()
	out := make([]backend.Program, 0, len(sm.programs))
	for _, p := range sm.programs {
		out = append(out, p)
	}
	sm.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Target, out[j].Target
		if a.ShaderType != b.ShaderType {
			return a.ShaderType < b.ShaderType
		}
		if a.Permutation != b.Permutation {
			return a.Permutation < b.Permutation
		}
		return a.VertexFactory < b.VertexFactory
	})
	return out
}

// IsCompleteFor reports whether the map holds a program for every target.
// An unfinalized map is never complete.
func (sm *ShaderMap) IsCompleteFor(targets []backend.Target) bool {
	if !sm.finalized.Load() {
		return false
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, t := range targets {
		key := ProgramKey{
			ShaderType:    t.ShaderType,
			Permutation:   t.Permutation,
			VertexFactory: t.VertexFactory,
		}
		if _, ok := sm.programs[key]; !ok {
			return false
		}
	}
	return true
}

// Registry is the process-scoped fingerprint-to-artifact table. Identical
// material configurations across different materials reuse one compiled
// result through it.
//
// The registry holds one reference per registered map; Clear (at renderer
// shutdown) drops them.
type Registry struct {
	maps *cache.ShardedMap[Digest, *ShaderMap]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		maps: cache.NewSharded[Digest, *ShaderMap](cache.BytesHasher[Digest]),
	}
}

// Find returns the registered map for a fingerprint digest, or nil.
// The caller does not receive a new reference; AddRef before storing.
func (r *Registry) Find(d Digest) *ShaderMap {
	sm, _ := r.maps.Get(d)
	return sm
}

// Register publishes a finalized map so equal-fingerprint materials share
// it. Registering an unfinalized map panics: the consumer-visible path must
// never observe a half-built artifact. Returns the registered map, which is
// the existing one when the fingerprint was already present.
func (r *Registry) Register(sm *ShaderMap) *ShaderMap {
	if !sm.IsFinalized() {
		panic("shadermap: Register of unfinalized shader map")
	}
	existing, loaded := r.maps.GetOrCreate(sm.digest, func() *ShaderMap {
		sm.registry = r
		sm.AddRef() // registry's reference
		return sm
	})
	if loaded && existing != sm {
		Logger().Debug("shader map already registered, sharing existing",
			"fingerprint", sm.digest.String())
	}
	return existing
}

// remove drops a map whose last reference died. Called from Release.
func (r *Registry) remove(sm *ShaderMap) {
	r.maps.Delete(sm.digest)
}

// Len returns the number of registered maps.
func (r *Registry) Len() int { return r.maps.Len() }

// Clear drops the registry's references to every map, destroying those
// nobody else holds. Called at renderer shutdown.
func (r *Registry) Clear() {
	var all []*ShaderMap
	r.maps.Range(func(_ Digest, sm *ShaderMap) bool {
		all = append(all, sm)
		return true
	})
	r.maps.Clear()
	for _, sm := range all {
		sm.registry = nil
		sm.Release()
	}
}

// Stats reports registry lookup statistics.
func (r *Registry) Stats() cache.Stats { return r.maps.Stats() }
